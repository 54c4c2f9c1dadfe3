package barcodes

import "fmt"

// CheckDigit computes the trailing mod-10 check digit for the given digit
// body. Digits are weighted 1 and 3 alternately from the left, the scheme
// EAN-13 and UPC-A retail codes use.
func CheckDigit(body string) (byte, error) {
	if body == "" {
		return 0, fmt.Errorf("barcode body required")
	}
	sum := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("barcode body must be numeric")
		}
		digit := int(c - '0')
		// weights alternate 1,3,1,3... on positions counted from the right
		// of the body so a 12-digit body yields the EAN-13 check digit
		if (len(body)-i)%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return byte('0' + check), nil
}

// Validate reports whether a full code's last digit is the correct check
// digit for its body.
func Validate(code string) error {
	if len(code) < 2 {
		return fmt.Errorf("barcode too short")
	}
	body := code[:len(code)-1]
	want, err := CheckDigit(body)
	if err != nil {
		return err
	}
	if code[len(code)-1] != want {
		return fmt.Errorf("barcode check digit mismatch")
	}
	return nil
}
