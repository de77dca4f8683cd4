package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// passwordExpiryKey is the tenant system configuration entry holding
// the password age limit as "<magnitude> <unit>", e.g. "3 M".
const passwordExpiryKey = "passwordExpiry"

// LocalRealmChecker verifies a password against the local realms of an
// Authentication. A matching password still comes back RealmExpired
// when it aged past the tenant's configured limit, unless the account
// belongs to the exempt mail domain.
func LocalRealmChecker(password, system, exemptDomain string) RealmChecker {
	return func(ctx context.Context, authentication *Authentication, partyGroup *PartyGroup) (RealmStatus, error) {
		if authentication == nil || password == "" {
			return RealmFail, nil
		}

		for _, realm := range authentication.Realms {
			if realm.RealmCode != RealmLocal || realm.PasswordHash == "" {
				continue
			}

			if err := ComparePasswordAndHash(password, realm.PasswordHash); err != nil {
				continue
			}

			if isExemptAccount(authentication.Username, exemptDomain) {
				return RealmPass, nil
			}

			window, err := passwordExpiryWindow(partyGroup, system)
			if err != nil {
				return RealmFail, err
			}

			if window <= 0 || realm.CreatedAt == nil {
				return RealmPass, nil
			}

			if time.Now().After(realm.CreatedAt.Add(window)) {
				return RealmExpired, nil
			}

			return RealmPass, nil
		}

		return RealmFail, nil
	}
}

// isExemptAccount reports whether the username's mail domain is the
// internal one excused from tenant password expiry.
func isExemptAccount(username, exemptDomain string) bool {
	if exemptDomain == "" {
		return false
	}
	domain := "@" + strings.TrimPrefix(strings.ToLower(exemptDomain), "@")
	return strings.HasSuffix(strings.ToLower(username), domain)
}

// passwordExpiryWindow reads the tenant's passwordExpiry setting for
// the given system. Zero means no limit is configured.
func passwordExpiryWindow(partyGroup *PartyGroup, system string) (time.Duration, error) {
	configuration := partyGroup.SystemConfiguration(system)
	if configuration == nil {
		return 0, nil
	}

	raw, _ := configuration[passwordExpiryKey].(string)
	if raw == "" {
		return 0, nil
	}

	return parseExpiryWindow(raw)
}

// parseExpiryWindow parses a "<magnitude> <unit>" pair. Units follow
// the scheduling shorthand the tenant settings already use: m minutes,
// h hours, d days, w weeks, M months, y years.
func parseExpiryWindow(raw string) (time.Duration, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return 0, goerrors.New("malformed password expiry setting: "+raw, goerrors.CategoryValidation)
	}

	magnitude, err := strconv.Atoi(fields[0])
	if err != nil || magnitude < 0 {
		return 0, goerrors.New("malformed password expiry magnitude: "+raw, goerrors.CategoryValidation)
	}

	var unit time.Duration
	switch fields[1] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	case "M":
		unit = 30 * 24 * time.Hour
	case "y":
		unit = 365 * 24 * time.Hour
	default:
		return 0, goerrors.New("unknown password expiry unit: "+raw, goerrors.CategoryValidation)
	}

	return time.Duration(magnitude) * unit, nil
}
