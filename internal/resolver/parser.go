package resolver

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Parse reads Sesame "-oI" text output and returns the first resolved
// position. Lines look like:
//
//	%C.0 SNR
//	%J 83.63308333 +22.01450000 = 05:34:31.94 +22:00:52.2
//
// Output with no %J line means the name is unknown and yields ErrNotFound.
func Parse(r io.Reader, name string, logger *slog.Logger) (ObjectInfo, error) {
	scanner := bufio.NewScanner(r)

	info := ObjectInfo{Name: name}
	var havePos, haveType bool

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")

		switch {
		case strings.HasPrefix(line, "%J ") && !havePos:
			fields := strings.Fields(line)
			if len(fields) < 3 {
				logger.Warn("skipping malformed sesame position", "name", name, "line", line)
				continue
			}
			ra, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				logger.Warn("skipping sesame position with invalid RA", "name", name, "ra_str", fields[1])
				continue
			}
			dec, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				logger.Warn("skipping sesame position with invalid Dec", "name", name, "dec_str", fields[2])
				continue
			}
			if ra < 0 || ra >= 360 || dec < -90 || dec > 90 {
				logger.Warn("skipping sesame position out of range", "name", name, "ra", ra, "dec", dec)
				continue
			}
			info.RA, info.Dec = ra, dec
			havePos = true

		case strings.HasPrefix(line, "%C") && !haveType:
			// "%C.0 SNR": the code follows the first space.
			if i := strings.IndexByte(line, ' '); i > 0 {
				info.Type = strings.TrimSpace(line[i+1:])
				haveType = info.Type != ""
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ObjectInfo{}, fmt.Errorf("reading sesame response: %w", err)
	}

	if !havePos {
		return ObjectInfo{}, fmt.Errorf("sesame %q: %w", name, ErrNotFound)
	}
	return info, nil
}
