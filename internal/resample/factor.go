package resample

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VolumeExt is the file extension of every volume the pipeline handles.
const VolumeExt = ".nii.gz"

// DefaultPrecision is the number of significant digits kept in file names.
const DefaultPrecision = 6

var ErrInvalidFactor = errors.New("scaling factor must be positive and finite")

// FormatFactor renders f in its shortest form at the given number of
// significant digits: 0.5 -> "0.5", 1 -> "1", 1.0/3 -> "0.333333".
func FormatFactor(f float64, precision int) string {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return strconv.FormatFloat(f, 'g', precision, 64)
}

// FileName is the volume file name for f.
func FileName(f float64, precision int) string {
	return FormatFactor(f, precision) + VolumeExt
}

// FactorError reports a volume whose name does not encode a factor.
type FactorError struct {
	Name string
	Err  error
}

func (e *FactorError) Error() string {
	return fmt.Sprintf("cannot derive scaling factor from %q: %v", e.Name, e.Err)
}

func (e *FactorError) Unwrap() error { return e.Err }

// ParseFactorFile recovers the factor from a volume file name.
func ParseFactorFile(name string) (float64, error) {
	if !strings.HasSuffix(name, VolumeExt) {
		return 0, &FactorError{Name: name, Err: fmt.Errorf("missing %s extension", VolumeExt)}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(name, VolumeExt), 64)
	if err != nil {
		return 0, &FactorError{Name: name, Err: err}
	}
	if err := ValidateFactor(f); err != nil {
		return 0, &FactorError{Name: name, Err: err}
	}
	return f, nil
}

// ValidateFactor rejects zero, negative, infinite and NaN factors.
func ValidateFactor(f float64) error {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("%w: %v", ErrInvalidFactor, f)
	}
	return nil
}

// DefaultFactors returns 2^i for i in -2..2.
func DefaultFactors() []float64 {
	out := make([]float64, 0, 5)
	for i := -2; i <= 2; i++ {
		out = append(out, math.Pow(2, float64(i)))
	}
	return out
}
