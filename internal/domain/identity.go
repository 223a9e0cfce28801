package domain

// ProviderIdentity is a verified identity assertion from one of the supported
// credential paths. Exactly one resolver consumes all variants so the
// find-or-create-and-merge rules live in a single place.
type ProviderIdentity interface {
	providerIdentity()
}

// PhoneIdentity is an OTP- or password-verified phone number.
type PhoneIdentity struct {
	Phone string
}

// PlateIdentity is a password-verified, normalized license plate.
type PlateIdentity struct {
	LicensePlate string
}

// LineIdentity carries the profile fetched after a LINE OAuth login.
// DisplayName, PictureURL and IsFriend are mutable and refreshed on every
// login.
type LineIdentity struct {
	LineUserID  string
	DisplayName string
	PictureURL  string
	IsFriend    bool
}

// AppleIdentity carries verified Sign in with Apple claims. Email and
// FullName are only supplied by Apple on the first authorization and must
// never overwrite values already stored.
type AppleIdentity struct {
	Subject  string
	Email    string
	FullName string
}

func (PhoneIdentity) providerIdentity() {}
func (PlateIdentity) providerIdentity() {}
func (LineIdentity) providerIdentity()  {}
func (AppleIdentity) providerIdentity() {}
