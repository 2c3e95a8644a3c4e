package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const lineLength = 69

// ParseElementSet decodes one two-line element set. Both lines must be
// exactly 69 characters with the correct line-number prefix; any structural
// or numeric-field failure returns a *MalformedElementSetError and a nil set.
//
// The mod-10 line checksums are verified last. A checksum failure is
// advisory: the returned set is complete and usable, and the error (a
// *ChecksumMismatchError, reachable with errors.As) tells the caller which
// line disagreed. Callers that trust their source may log it and continue.
func ParseElementSet(line1, line2 string) (*ElementSet, error) {
	if len(line1) != lineLength {
		return nil, &MalformedElementSetError{Line: 1, Detail: fmt.Sprintf("length %d, want %d", len(line1), lineLength)}
	}
	if len(line2) != lineLength {
		return nil, &MalformedElementSetError{Line: 2, Detail: fmt.Sprintf("length %d, want %d", len(line2), lineLength)}
	}
	if line1[0] != '1' {
		return nil, &MalformedElementSetError{Line: 1, Detail: "line number prefix is not '1'"}
	}
	if line2[0] != '2' {
		return nil, &MalformedElementSetError{Line: 2, Detail: "line number prefix is not '2'"}
	}

	cat1, err := parseInt(line1[2:7], 1, "catalog number")
	if err != nil {
		return nil, err
	}
	cat2, err := parseInt(line2[2:7], 2, "catalog number")
	if err != nil {
		return nil, err
	}
	if cat1 != cat2 {
		return nil, &MalformedElementSetError{Detail: fmt.Sprintf("catalog number differs between lines: %d vs %d", cat1, cat2)}
	}

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return nil, &MalformedElementSetError{Line: 1, Field: "epoch", Detail: err.Error()}
	}

	ndot, err := parseFloat(line1[33:43], 1, "mean motion derivative")
	if err != nil {
		return nil, err
	}
	nddot, err := parseAssembledExponent(line1[44:52], 1, "mean motion second derivative")
	if err != nil {
		return nil, err
	}
	bstar, err := parseAssembledExponent(line1[53:61], 1, "bstar")
	if err != nil {
		return nil, err
	}
	elnum, err := parseInt(line1[64:68], 1, "element number")
	if err != nil {
		return nil, err
	}

	incl, err := parseFloat(line2[8:16], 2, "inclination")
	if err != nil {
		return nil, err
	}
	raan, err := parseFloat(line2[17:25], 2, "raan")
	if err != nil {
		return nil, err
	}
	// Eccentricity carries an assumed leading decimal point.
	ecc, err := parseFloat("."+strings.TrimSpace(line2[26:33]), 2, "eccentricity")
	if err != nil {
		return nil, err
	}
	argp, err := parseFloat(line2[34:42], 2, "argument of perigee")
	if err != nil {
		return nil, err
	}
	ma, err := parseFloat(line2[43:51], 2, "mean anomaly")
	if err != nil {
		return nil, err
	}
	mm, err := parseFloat(line2[52:63], 2, "mean motion")
	if err != nil {
		return nil, err
	}
	rev, err := parseInt(line2[63:68], 2, "revolution number")
	if err != nil {
		return nil, err
	}
	if mm <= 0 {
		return nil, &MalformedElementSetError{Line: 2, Field: "mean motion", Detail: fmt.Sprintf("non-positive value %g", mm)}
	}

	set := &ElementSet{
		CatalogNumber:    cat1,
		Classification:   line1[7],
		IntlDesignator:   strings.TrimSpace(line1[9:17]),
		Epoch:            epoch,
		MeanMotion:       mm,
		MeanMotionDot:    ndot,
		MeanMotionDDot:   nddot,
		Bstar:            bstar,
		InclinationDeg:   incl,
		RAANDeg:          raan,
		Eccentricity:     ecc,
		ArgPerigeeDeg:    argp,
		MeanAnomalyDeg:   ma,
		ElementNumber:    elnum,
		RevolutionNumber: rev,
		Line1:            line1,
		Line2:            line2,
	}

	if got := checksum(line1); got != int(line1[68]-'0') {
		return set, &ChecksumMismatchError{Line: 1, Want: got, Got: int(line1[68] - '0')}
	}
	if got := checksum(line2); got != int(line2[68]-'0') {
		return set, &ChecksumMismatchError{Line: 2, Want: got, Got: int(line2[68] - '0')}
	}

	return set, nil
}

// Parse reads 3-line NORAD TLE format from r and returns the decoded sets.
// Malformed entries are skipped with a warning log; checksum mismatches are
// logged and the entry kept.
func Parse(r io.Reader, logger *slog.Logger) ([]ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var sets []ElementSet
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Try to find the next valid triplet.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		set, err := ParseElementSet(line1, line2)
		var cks *ChecksumMismatchError
		switch {
		case err == nil:
		case errors.As(err, &cks):
			logger.Warn("TLE checksum mismatch, keeping entry",
				"name", strings.TrimSpace(name), "line", cks.Line,
				"computed", cks.Want, "carried", cks.Got)
		default:
			logger.Warn("skipping malformed TLE entry", "name", strings.TrimSpace(name), "error", err)
			i += 3
			continue
		}

		set.Name = strings.TrimSpace(name)
		sets = append(sets, *set)
		i += 3
	}

	return sets, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to
// time.Time. Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %g out of range", dayOfYear)
	}

	// Day of year is 1-based: day 1.0 is midnight Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}

// parseAssembledExponent decodes the TLE packed-exponent notation used for
// bstar and the second mean-motion derivative: " 12345-4" means 0.12345e-4.
func parseAssembledExponent(field string, line int, name string) (float64, error) {
	mantissa := strings.TrimSpace(field[:len(field)-2])
	exp := strings.TrimSpace(field[len(field)-2:])
	if mantissa == "" {
		mantissa = "0"
	}

	sign := ""
	if strings.HasPrefix(mantissa, "-") || strings.HasPrefix(mantissa, "+") {
		sign = mantissa[:1]
		mantissa = mantissa[1:]
	}
	if exp == "" || exp == "-" || exp == "+" {
		exp = "0"
	}

	v, err := strconv.ParseFloat(sign+"0."+mantissa+"e"+exp, 64)
	if err != nil {
		return 0, &MalformedElementSetError{Line: line, Field: name, Detail: fmt.Sprintf("invalid packed value %q", field)}
	}
	return v, nil
}

func parseFloat(field string, line int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, &MalformedElementSetError{Line: line, Field: name, Detail: fmt.Sprintf("invalid number %q", strings.TrimSpace(field))}
	}
	return v, nil
}

func parseInt(field string, line int, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, &MalformedElementSetError{Line: line, Field: name, Detail: fmt.Sprintf("invalid integer %q", strings.TrimSpace(field))}
	}
	return v, nil
}

// checksum is the TLE mod-10 line checksum over the first 68 characters:
// digits count as their value, '-' counts as 1, everything else as 0.
func checksum(line string) int {
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}
