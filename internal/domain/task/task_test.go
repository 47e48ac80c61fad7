package task

import "testing"

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusSuccess, true},
		{StatusFailed, true},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.want {
			t.Errorf("%s.Terminal() = %t, want %t", c.status, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSuccess, StatusFailed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("running").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestCreateRequestValidate(t *testing.T) {
	cases := []struct {
		name      string
		companyID string
		wantErr   bool
	}{
		{"valid", "1001", false},
		{"single digit", "7", false},
		{"max length", "12345678901234567890", false},
		{"empty", "", true},
		{"too long", "123456789012345678901", true},
		{"letters", "ACME", true},
		{"mixed", "12a4", true},
		{"negative", "-101", true},
		{"spaces", "10 01", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := CreateRequest{CompanyID: c.companyID}
			err := req.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate(%q) err = %v, wantErr %t", c.companyID, err, c.wantErr)
			}
		})
	}
}
