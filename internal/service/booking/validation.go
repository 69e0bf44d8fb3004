package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/uma-arai/sbcntr-booking/internal/model"
)

// 国内の携帯電話番号: 04 + 8桁
var mobilePattern = regexp.MustCompile(`^04\d{8}$`)

var guestIndexPattern = regexp.MustCompile(`Guests\[(\d+)\]`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("aumobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type submissionInput struct {
	Slot   *model.TimeSlot `validate:"required"`
	Guests []guestInput    `validate:"min=1,dive"`
	Status string          `validate:"oneof=PENDING CONFIRMED CANCELLED"`
}

type guestInput struct {
	Services []model.GuestService `validate:"min=1"`
}

// NormalizePhone は電話番号から空白を取り除きます
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// ValidateSubmission は送信前のフォーム入力をチェックします
// エラーがある場合は *ValidationError を返します
func ValidateSubmission(s FormState) error {
	verr := &ValidationError{}

	in := submissionInput{
		Slot:   s.SelectedSlot,
		Guests: make([]guestInput, len(s.Guests)),
		Status: string(s.Status),
	}
	for i, g := range s.Guests {
		in.Guests[i] = guestInput{Services: g.Services}
	}

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			switch fe.StructField() {
			case "Slot":
				verr.add("slot", "a time slot must be selected")
			case "Guests":
				verr.add("guests", "at least one guest is required")
			case "Services":
				verr.add(guestServicesField(fe.StructNamespace()), "each guest needs at least one service")
			case "Status":
				verr.add("status", fmt.Sprintf("unknown status %q", s.Status))
			}
		}
	}

	if s.MaxGroupSize > 0 && len(s.Guests) > s.MaxGroupSize {
		verr.add("guests", fmt.Sprintf("at most %d guests per reservation", s.MaxGroupSize))
	}

	if !s.WalkIn {
		if err := validate.Var(NormalizePhone(s.Customer.Phone), "required,aumobile"); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "required" {
				verr.add("customer.phone", "phone is required unless this is a walk-in booking")
			} else {
				verr.add("customer.phone", "phone must be 04 followed by 8 digits")
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func guestServicesField(namespace string) string {
	m := guestIndexPattern.FindStringSubmatch(namespace)
	if len(m) != 2 {
		return "guests.services"
	}
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return "guests.services"
	}
	return fmt.Sprintf("guests[%d].services", i)
}
