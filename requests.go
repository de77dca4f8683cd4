package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// LoginRequest is a password login attempt
type LoginRequest struct {
	Username     string       `form:"username" json:"username"`
	Password     string       `form:"password" json:"password"`
	AuthTypeCode AuthTypeCode `form:"auth_type_code" json:"auth_type_code"`
	System       string       `form:"system" json:"system"`
	RememberMe   bool         `form:"remember_me" json:"remember_me"`
	Meta         RequestMeta  `form:"-" json:"-"`
}

// Validate will validate the payload
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.AuthTypeCode, validation.In(AuthTypeLocal, AuthTypeAPI)),
	)
}

// RegisterRequest redeems an invitation. Token is the single-use
// invite string; System names the downstream system the membership
// must cover.
type RegisterRequest struct {
	Token       string      `form:"token" json:"token"`
	Username    string      `form:"username" json:"username"`
	Password    string      `form:"password" json:"password"`
	System      string      `form:"system" json:"system"`
	Phone       string      `form:"phone" json:"phone"`
	DisplayName string      `form:"display_name" json:"display_name"`
	FirstName   string      `form:"first_name" json:"first_name"`
	LastName    string      `form:"last_name" json:"last_name"`
	PhotoURL    string      `form:"photo_url" json:"photo_url"`
	Meta        RequestMeta `form:"-" json:"-"`
}

// RealmProfile is the profile document stored on the realm created at
// registration. Empty fields are omitted; the phone is normalized to
// E.164.
func (r RegisterRequest) RealmProfile() map[string]any {
	profile := map[string]any{
		"email": r.Username,
	}

	if r.DisplayName != "" {
		profile["displayName"] = r.DisplayName
	}
	if r.FirstName != "" {
		profile["firstName"] = r.FirstName
	}
	if r.LastName != "" {
		profile["lastName"] = r.LastName
	}
	if r.PhotoURL != "" {
		profile["photoURL"] = r.PhotoURL
	}
	if r.Phone != "" {
		profile["phone"] = NormalizePhone(r.Phone)
	}

	return profile
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required, validation.Length(8, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.System, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Phone, validation.By(validatePhone)),
	)
}

func validatePhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return err
	}

	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}

	return nil
}

// NormalizePhone renders a phone number in E.164 form, leaving the
// input untouched when it cannot be parsed.
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
