package target

import (
	"fmt"
	"net"
	"strings"

	"github.com/vam876/lllmscanner/internal/model"
)

// DetectKind определяет форму цели по самому вводу:
// одиночный IP, диапазон "a.b.c.d-a.b.c.e" или CIDR.
func DetectKind(raw string) (model.TargetType, error) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "", fmt.Errorf("empty target")
	}

	if net.ParseIP(t) != nil {
		return model.TargetSingle, nil
	}
	if strings.Contains(t, "/") {
		if _, _, err := net.ParseCIDR(t); err == nil {
			return model.TargetCIDR, nil
		}
		return "", fmt.Errorf("invalid target: %s", t)
	}
	if strings.Contains(t, "-") {
		if err := validateRange(t); err != nil {
			return "", err
		}
		return model.TargetRange, nil
	}
	return "", fmt.Errorf("invalid target: %s", t)
}

// Validate проверяет формат цели для заявленного вида. Семантическую
// проверку одиночного IP дополнительно делает движок (validate_ip_command).
func Validate(kind model.TargetType, raw string) error {
	t := strings.TrimSpace(raw)
	if t == "" {
		return fmt.Errorf("empty target")
	}

	switch kind {
	case model.TargetSingle:
		if net.ParseIP(t) == nil {
			return fmt.Errorf("invalid IP: %s", t)
		}
		return nil
	case model.TargetRange:
		return validateRange(t)
	case model.TargetCIDR:
		_, _, err := net.ParseCIDR(t)
		if err != nil {
			return fmt.Errorf("invalid CIDR: %s", t)
		}
		return nil
	}
	return fmt.Errorf("unknown target type: %s", kind)
}

// validateRange: обе границы — IP одной версии, начало не больше конца.
func validateRange(t string) error {
	parts := strings.SplitN(t, "-", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid range: %s", t)
	}

	lo := net.ParseIP(strings.TrimSpace(parts[0]))
	hi := net.ParseIP(strings.TrimSpace(parts[1]))
	if lo == nil || hi == nil {
		return fmt.Errorf("invalid range: %s", t)
	}

	lo4, hi4 := lo.To4(), hi.To4()
	if (lo4 == nil) != (hi4 == nil) {
		return fmt.Errorf("mixed address families in range: %s", t)
	}
	if lo4 != nil {
		lo, hi = lo4, hi4
	}
	if compareIP(lo, hi) > 0 {
		return fmt.Errorf("range start after end: %s", t)
	}
	return nil
}

func compareIP(a, b net.IP) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
