package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"taskboard/internal/domain/models"
	"taskboard/internal/metrics"
)

const (
	SignupOTPTTL = 2 * time.Minute
	ResetOTPTTL  = 10 * time.Minute
)

var otpSpan = big.NewInt(900000)

// generateOTP returns a six digit code drawn uniformly from 100000-999999.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// issueOTP stores a fresh code of the given purpose on u. The caller persists u.
func (s *AuthService) issueOTP(u *models.User, purpose models.OTPPurpose, ttl time.Duration) (string, error) {
	code, err := s.newCode()
	if err != nil {
		return "", err
	}
	expiry := s.clock.Now().Add(ttl)
	u.OTP = code
	u.OTPExpiry = &expiry
	u.OTPPurpose = purpose
	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	return code, nil
}

// checkOTP evaluates presence, then code and purpose, then expiry. It never mutates u.
func checkOTP(u *models.User, purpose models.OTPPurpose, code string, now time.Time) bool {
	ok := otpMatches(u, purpose, code, now)
	result := "invalid"
	if ok {
		result = "ok"
	}
	metrics.OTPVerifications.WithLabelValues(string(purpose), result).Inc()
	return ok
}

func otpMatches(u *models.User, purpose models.OTPPurpose, code string, now time.Time) bool {
	if u == nil || u.OTP == "" || u.OTPExpiry == nil {
		return false
	}
	code = strings.TrimSpace(code)
	if u.OTPPurpose != purpose || subtle.ConstantTimeCompare([]byte(u.OTP), []byte(code)) != 1 {
		return false
	}
	return u.OTPExpiry.After(now)
}
