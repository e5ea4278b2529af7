package sensor

import (
	"bufio"
	"strconv"
	"strings"
)

// Parser extracts allow-listed readings from ipmi-sensors output lines:
//
//	5968: CPU2 DIMM7 (Temperature): 30.50 C (NA/87.00): [OK]
//	 id  : name                    : value unit (thresholds) : state
type Parser struct {
	sensors Set
}

// NewParser creates a parser that keeps only the given sensors.
func NewParser(sensors Set) *Parser {
	return &Parser{sensors: sensors}
}

// ParseLine returns the reading on one output line, if any.
// Lines with fewer than three colon-separated fields and sensors outside
// the allow-list yield nothing. A value that is not a number still yields
// a reading, marked invalid.
func (p *Parser) ParseLine(host, line string) (Reading, bool) {
	fields := strings.Split(line, ":")
	if len(fields) < 3 {
		return Reading{}, false
	}

	name := NormalizeName(fields[1])
	if name == "" || !p.sensors.Contains(name) {
		return Reading{}, false
	}

	r := Reading{Host: host, Sensor: name}

	// The value field starts with a space, so the number is the second
	// space-separated token: " 30.50 C (NA/87.00)".
	tokens := strings.Split(fields[2], " ")
	if len(tokens) < 2 {
		return r, true
	}
	raw := strings.TrimSpace(tokens[1])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return r, true
	}

	r.Value = v
	r.Valid = true
	r.Raw = raw
	return r, true
}

// Parse applies ParseLine to every line of output, keeping line order.
func (p *Parser) Parse(host, output string) []Reading {
	var readings []Reading
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if r, ok := p.ParseLine(host, line); ok {
			readings = append(readings, r)
		}
	}
	return readings
}
