package dto

type SignUpDTO struct {
	Identifier string `json:"identifier" validate:"notblank,identifier"`
	Email      string `json:"email"      validate:"notblank,emailshape"`
	Password   string `json:"password"   validate:"notblank,strongpwd"`
}

// SignInDTO checks the password for presence only; the policy applies at sign-up.
type SignInDTO struct {
	Identifier string `json:"identifier" validate:"notblank,identifier"`
	Password   string `json:"password"   validate:"notblank"`
}

type CheckDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenPairDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type IdentityDTO struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
}

type ErrorDTO struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
