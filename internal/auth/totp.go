package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"image/png"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpSecretBytes  = 20 // 160 bits before base32 encoding
	totpPeriod       = 30
	backupCodeLength = 10
	// No vowels or ambiguous glyphs, so codes read back unambiguously.
	backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type TOTPEnrollment struct {
	Secret        string
	OtpauthURL    string
	QRCodeDataURL string
}

type TOTPVerifier interface {
	Verify(secret, code string) bool
	Generate(account string) (TOTPEnrollment, error)
}

// TOTPService generates and verifies RFC 6238 time-based codes. Skew
// is the number of 30-second steps tolerated on either side of the
// current one to absorb clock drift.
type TOTPService struct {
	Issuer string
	Skew   uint
}

func NewTOTPService(issuer string, skew uint) *TOTPService {
	return &TOTPService{Issuer: issuer, Skew: skew}
}

func (t *TOTPService) Generate(account string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.Issuer,
		AccountName: account,
		SecretSize:  totpSecretBytes,
		Period:      totpPeriod,
	})
	if err != nil {
		return TOTPEnrollment{}, err
	}

	enrollment := TOTPEnrollment{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return enrollment, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return enrollment, err
	}
	enrollment.QRCodeDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	return enrollment, nil
}

func (t *TOTPService) Verify(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      t.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateBackupCodes returns n independently random recovery codes,
// formatted in two dash-separated groups.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < n; i++ {
		var sb strings.Builder
		for j := 0; j < backupCodeLength; j++ {
			if j == backupCodeLength/2 {
				sb.WriteByte('-')
			}
			idx, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, fmt.Errorf("generate backup code: %w", err)
			}
			sb.WriteByte(backupCodeAlphabet[idx.Int64()])
		}
		codes = append(codes, sb.String())
	}
	return codes, nil
}
