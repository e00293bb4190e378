package weightstats

// BMI category bands. Intervals are half-open [min, max) except the last,
// which is open-ended upward - boundary values always land in the higher
// band (18.5 is Normal, 25 is Overweight, 30 is Obese, 40 is Extremely Obese).
const (
	BMIUnderweight    = "Underweight"
	BMINormal         = "Normal"
	BMIOverweight     = "Overweight"
	BMIObese          = "Obese"
	BMIExtremelyObese = "Extremely Obese"
)

type bmiBand struct {
	min      float64
	category string
}

// ordered descending by lower bound, first match wins
var bmiBands = []bmiBand{
	{40, BMIExtremelyObese},
	{30, BMIObese},
	{25, BMIOverweight},
	{18.5, BMINormal},
	{0, BMIUnderweight},
}

// CalculateBMI returns weight / height² with height in centimeters.
// Non-positive weight or height yields 0 - degenerate, not an error.
func CalculateBMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	heightM := heightCm / 100
	return weightKg / (heightM * heightM)
}

// GetBMICategory maps a BMI value onto exactly one of the five bands.
func GetBMICategory(bmi float64) string {
	for _, band := range bmiBands {
		if bmi >= band.min {
			return band.category
		}
	}
	return BMIUnderweight
}
