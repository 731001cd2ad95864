package account

// Secret defines a security pair of a key and secret
type Secret struct {
	Key    string `json:"-"`
	Secret string `json:"-"`
}

// Empty returns true if the secret is not set.
func (s Secret) Empty() bool {
	return s.Key == "" || s.Secret == ""
}

// Token represents a tokenized secret combination of a string and an ID.
type Token struct {
	Token string `json:"-"`
	ID    int64  `json:"-"`
}

// Empty returns true if the token is not set.
func (t Token) Empty() bool {
	return t.Token == "" || t.ID == 0
}
