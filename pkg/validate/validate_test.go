package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/cafe/pkg/validate"
)

type menuInput struct {
	Name       string `json:"name"        validate:"required,min=2,max=50"`
	Price      string `json:"price"       validate:"required,money"`
	CategoryID *uint  `json:"category_id" validate:"nullable,gte=1"`
}

func TestValidInput(t *testing.T) {
	cat := uint(3)
	errs := validate.Struct(menuInput{Name: "Latte", Price: "150.00", CategoryID: &cat})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(menuInput{})
	if _, ok := errs["name"]; !ok {
		t.Error("expected name to be required")
	}
	if _, ok := errs["price"]; !ok {
		t.Error("expected price to be required")
	}
	if _, ok := errs["category_id"]; ok {
		t.Error("nullable pointer must be skipped when nil")
	}
}

func TestMoneyRule(t *testing.T) {
	for _, bad := range []string{"-1", "1.999", "abc", "1,50"} {
		if errs := validate.Struct(menuInput{Name: "Tea", Price: bad}); errs["price"] == "" {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
	for _, good := range []string{"0", "99.5", "150.00"} {
		if errs := validate.Struct(menuInput{Name: "Tea", Price: good}); validate.HasErrors(errs) {
			t.Errorf("expected %q to pass, got %v", good, errs)
		}
	}
}

func TestDigitsRule(t *testing.T) {
	type in struct {
		Code string `json:"code" validate:"required,digits=6"`
	}
	cases := map[string]bool{
		"123456":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		" 12345":  false,
	}
	for code, ok := range cases {
		errs := validate.Struct(in{Code: code})
		if ok == validate.HasErrors(errs) {
			t.Errorf("code %q: expected valid=%v, got errs=%v", code, ok, errs)
		}
	}
}

func TestInRuleKeepsFollowingRules(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"required,in=NEW,IN_PROGRESS,DONE,max=11"`
	}
	if errs := validate.Struct(in{Status: "DONE"}); validate.HasErrors(errs) {
		t.Errorf("expected DONE to pass, got %v", errs)
	}
	if errs := validate.Struct(in{Status: "LOST"}); errs["status"] == "" {
		t.Error("expected unknown status to fail")
	}
}

func TestNumericBounds(t *testing.T) {
	type in struct {
		Quantity int `json:"quantity" validate:"required,gte=1,lte=100"`
	}
	if errs := validate.Struct(in{Quantity: 101}); !validate.HasErrors(errs) {
		t.Error("expected 101 to fail")
	}
	if errs := validate.Struct(in{Quantity: 4}); validate.HasErrors(errs) {
		t.Errorf("expected 4 to pass, got %v", errs)
	}
}
