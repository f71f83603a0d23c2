/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package quantity converts the cluster's resource quantity strings ("100m", "1Gi", "4")
// into base numeric values. It is a narrow, stdlib-only helper: the shapes it recognizes
// are fixed by the cluster API, not by arithmetic that benefits from a parsing library.
package quantity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kaus-io/cluster-priority-scheduler/pkg/schedulererrors"
)

var binaryUnit = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(Ki|Mi|Gi)$`)

const (
	kibi = 1 << 10
	mebi = 1 << 20
	gibi = 1 << 30
)

// Parse converts a cluster resource quantity string to its base numeric value.
//
//   - "" parses to 0.
//   - a "...m" suffix is millicores: the numeric prefix is divided by 1000.
//   - a "Ki"/"Mi"/"Gi" suffix multiplies by the corresponding power of two.
//   - anything else is parsed as a bare float.
//
// Parse returns MalformedQuantity only when none of the above shapes match; callers treat
// that as "skip this resource dimension" rather than aborting the caller's computation.
func Parse(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	if strings.HasSuffix(value, "m") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(value, "m"), 64)
		if err != nil {
			return 0, schedulererrors.NewMalformedQuantity(value, err)
		}
		return n / 1000, nil
	}
	if m := binaryUnit.FindStringSubmatch(value); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, schedulererrors.NewMalformedQuantity(value, err)
		}
		switch m[2] {
		case "Ki":
			return n * kibi, nil
		case "Mi":
			return n * mebi, nil
		case "Gi":
			return n * gibi, nil
		}
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, schedulererrors.NewMalformedQuantity(value, err)
	}
	return n, nil
}

// MustParse is Parse with the error contribution forced to zero. It's the shape callers
// that treat a MalformedQuantity as zero-contribution actually want (§4.1).
func MustParse(value string) float64 {
	n, err := Parse(value)
	if err != nil {
		return 0
	}
	return n
}
