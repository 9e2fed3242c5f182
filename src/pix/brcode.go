// Package pix builds static BR Code payloads (the Central Bank's
// merchant-presented QR standard): a TLV string terminated by a CRC16.
package pix

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	pixGUI = "br.gov.bcb.pix"

	maxMerchantNameLen = 25
	maxMerchantCityLen = 15
	maxTxIDLen         = 25
	maxDescriptionLen  = 40
	maxPixKeyLen       = 77

	// a two-digit TLV length cannot describe more than 99 bytes
	maxTLVValueLen = 99
)

type BRCodeParams struct {
	PixKey       string
	MerchantName string
	MerchantCity string
	Description  string
	TxID         string
	// AmountCents omits tag 54 entirely when zero (open-amount code).
	AmountCents int64
}

// Encode builds the full BR Code payload, checksum included.
func Encode(p BRCodeParams) (string, error) {
	if p.PixKey == "" {
		return "", errors.New("pix key is required")
	}
	if len(p.PixKey) > maxPixKeyLen {
		return "", fmt.Errorf("pix key exceeds %d characters", maxPixKeyLen)
	}
	if p.AmountCents < 0 {
		return "", errors.New("amount must not be negative")
	}

	name := NormalizeField(p.MerchantName, maxMerchantNameLen)
	city := NormalizeField(p.MerchantCity, maxMerchantCityLen)
	if name == "" || city == "" {
		return "", errors.New("merchant name and city are required")
	}
	txid := NormalizeField(p.TxID, maxTxIDLen)
	if txid == "" {
		txid = "***"
	}

	account := tlv("00", pixGUI) + tlv("01", p.PixKey)
	if desc := NormalizeField(p.Description, maxDescriptionLen); desc != "" {
		// tag 26 nests its own TLVs, so the account block as a whole must
		// still fit a two-digit length; the description gets whatever room
		// the key leaves and is dropped when a long key leaves none
		if room := maxTLVValueLen - len(account) - 4; room > 0 {
			if len(desc) > room {
				desc = strings.TrimSpace(desc[:room])
			}
			if desc != "" {
				account += tlv("02", desc)
			}
		}
	}

	var b strings.Builder
	b.WriteString(tlv("00", "01")) // payload format indicator
	b.WriteString(tlv("01", "11")) // static point of initiation
	b.WriteString(tlv("26", account))
	b.WriteString(tlv("52", "0000")) // MCC
	b.WriteString(tlv("53", "986"))  // BRL
	if p.AmountCents > 0 {
		b.WriteString(tlv("54", fmt.Sprintf("%d.%02d", p.AmountCents/100, p.AmountCents%100)))
	}
	b.WriteString(tlv("58", "BR"))
	b.WriteString(tlv("59", name))
	b.WriteString(tlv("60", city))
	b.WriteString(tlv("62", tlv("05", txid)))

	// The checksum covers everything up to and including its own "6304" prefix.
	payload := b.String() + "6304"
	return payload + fmt.Sprintf("%04X", CRC16CCITT([]byte(payload))), nil
}

// ValidateCRC reports whether a payload terminates in 6304 plus a checksum
// matching everything before the 4 hex digits.
func ValidateCRC(payload string) bool {
	if len(payload) < 8 {
		return false
	}
	body, crc := payload[:len(payload)-4], payload[len(payload)-4:]
	if !strings.HasSuffix(body, "6304") {
		return false
	}
	return crc == fmt.Sprintf("%04X", CRC16CCITT([]byte(body)))
}

// CRC16CCITT computes the checksum mandated by the BR Code standard:
// polynomial 0x1021, initial register 0xFFFF.
func CRC16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// NormalizeField strips diacritics, uppercases, drops anything outside
// [A-Z0-9 ] and truncates to max.
func NormalizeField(s string, max int) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	plain = strings.ToUpper(plain)
	var b strings.Builder
	for _, r := range plain {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > max {
		out = strings.TrimSpace(out[:max])
	}
	return out
}

// tlv renders one id-length-value field. Values over 99 bytes are clipped
// so the length stays two digits; Encode bounds every field it emits well
// below that.
func tlv(tag, value string) string {
	if len(value) > maxTLVValueLen {
		value = value[:maxTLVValueLen]
	}
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}
