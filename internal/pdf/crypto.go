package pdf

import (
	"errors"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Credentials contains the passwords for an encrypted PDF file.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// ErrEncrypted is returned when a file needs a password that was not given
// or was wrong.
var ErrEncrypted = errors.New("pdf is encrypted")

func newConfiguration(creds *Credentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if creds != nil {
		conf.UserPW = creds.UserPassword
		conf.OwnerPW = creds.OwnerPassword
	}
	return conf
}

// IsEncrypted reports whether the file cannot be read without a password.
func IsEncrypted(filename string) (bool, error) {
	if _, err := api.PageCountFile(filename); err != nil {
		if IsPasswordError(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEncrypted) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
