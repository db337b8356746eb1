// Package tonaddr validates TON addresses and converts them to one canonical form.
package tonaddr

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/xssnick/tonutils-go/address"

	"github.com/iho/goescrow/internal/domain"
)

// Normalize parses a user-friendly (base64) or raw ("<wc>:<hex>") address and
// returns its raw form. Two spellings of the same account normalize equally.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.NewError(domain.KindInvalidArgument, "address is empty")
	}

	if strings.Contains(s, ":") {
		return parseRaw(s)
	}

	addr, err := address.ParseAddr(s)
	if err != nil {
		return "", domain.WrapError(domain.KindInvalidArgument, err, "parse address %q", s)
	}

	return raw(int32(addr.Workchain()), addr.Data()), nil
}

// Equal reports whether a and b name the same account. Unparseable inputs
// compare as plain strings.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return na == nb
}

func parseRaw(s string) (string, error) {
	wcPart, hexPart, _ := strings.Cut(s, ":")

	wc, err := strconv.ParseInt(wcPart, 10, 32)
	if err != nil {
		return "", domain.WrapError(domain.KindInvalidArgument, err, "parse workchain of %q", s)
	}

	data, err := hex.DecodeString(hexPart)
	if err != nil {
		return "", domain.WrapError(domain.KindInvalidArgument, err, "parse account id of %q", s)
	}
	if len(data) != 32 {
		return "", domain.NewError(domain.KindInvalidArgument, "account id of %q must be 32 bytes", s)
	}

	return raw(int32(wc), data), nil
}

func raw(workchain int32, data []byte) string {
	return fmt.Sprintf("%d:%s", workchain, hex.EncodeToString(data))
}
