package domain

// CredentialKind selects which branch of the credentials union is populated.
type CredentialKind int

const (
	// ByUsername means Login carries a username.
	ByUsername CredentialKind = iota
	// ByEmail means Login carries an email address.
	ByEmail
)

// Credentials is a tagged union: a password paired with either an email or a
// username, never both. The kind is decided once at the transport boundary;
// nothing downstream re-inspects the login string to guess which it is.
type Credentials struct {
	Kind     CredentialKind
	Login    string
	Password string
}

// EmailCredentials builds email+password credentials.
func EmailCredentials(email, password string) Credentials {
	return Credentials{Kind: ByEmail, Login: email, Password: password}
}

// UsernameCredentials builds username+password credentials.
func UsernameCredentials(username, password string) Credentials {
	return Credentials{Kind: ByUsername, Login: username, Password: password}
}
