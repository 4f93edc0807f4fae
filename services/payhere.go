package services

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// PayHereService computes and verifies PayHere MD5 signatures. It does no
// I/O; the merchant secret never leaves this package.
type PayHereService struct {
	MerchantID     string
	merchantSecret string
}

func NewPayHereService(merchantID, merchantSecret string) *PayHereService {
	return &PayHereService{MerchantID: merchantID, merchantSecret: merchantSecret}
}

// FormatAmount renders an amount with exactly two decimal digits. The same
// formatted value must be used both for display to the gateway and inside
// the hash, or PayHere rejects the session.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// GenerateHash produces the merchant-side signature sent with a checkout
// initialization: md5(merchantId + orderId + amount(2dp) + currency +
// md5(secret)), hex uppercased at both levels.
func (s *PayHereService) GenerateHash(orderID string, amount float64, currency string) string {
	return md5Upper(s.MerchantID + orderID + FormatAmount(amount) + currency + md5Upper(s.merchantSecret))
}

// NotificationSignature recomputes the signature PayHere attaches to an
// inbound notification. The field composition differs from the outbound
// hash: the status code is part of the digest and the amount is taken
// verbatim as the gateway reported it.
func (s *PayHereService) NotificationSignature(merchantID, orderID, amount, currency, statusCode string) string {
	return md5Upper(merchantID + orderID + amount + currency + statusCode + md5Upper(s.merchantSecret))
}

// VerifyNotification reports whether md5sig matches the recomputed
// notification signature.
func (s *PayHereService) VerifyNotification(merchantID, orderID, amount, currency, statusCode, md5sig string) bool {
	return s.NotificationSignature(merchantID, orderID, amount, currency, statusCode) == md5sig
}

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
