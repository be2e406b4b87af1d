package service

import (
	"fmt"
	"regexp"
)

// DeliveryMode says how the refresh token travels back to the client:
// browsers get a same-site HTTP-only cookie, everything else (mobile, API
// clients) gets the X-Refresh-Token response header. The lifecycle manager
// itself is transport-agnostic; this only shapes the response.
type DeliveryMode string

const (
	DeliveryUnset  DeliveryMode = ""
	DeliveryCookie DeliveryMode = "cookie"
	DeliveryHeader DeliveryMode = "header"
)

var browserPattern = regexp.MustCompile(`Chrome|Firefox|Safari|Edge`)

// ClassifyDelivery picks the transport for a request. A non-empty override
// from configuration always wins; otherwise the User-Agent decides.
func ClassifyDelivery(userAgent string, override DeliveryMode) DeliveryMode {
	if override != DeliveryUnset {
		return override
	}
	if browserPattern.MatchString(userAgent) {
		return DeliveryCookie
	}
	return DeliveryHeader
}

func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch DeliveryMode(s) {
	case DeliveryUnset, DeliveryCookie, DeliveryHeader:
		return DeliveryMode(s), nil
	}
	return DeliveryUnset, fmt.Errorf("unknown delivery mode %q", s)
}
