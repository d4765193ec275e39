package helpers

import "math"

func PositiveNegativeRatio(list []float64) float64 {
	countPositive := 0
	countNegative := 0
	for _, item := range list {
		if item > 0 {
			countPositive++
		} else {
			countNegative++
		}
	}

	if countNegative == 0 {
		return 0
	}
	return float64(countPositive) / float64(countNegative)
}

func Mean(numbers []float64) float64 {
	if len(numbers) == 0 {
		return 0
	}
	return Sum(numbers) / float64(len(numbers))
}

func StdDev(numbers []float64, mean float64) float64 {
	if len(numbers) < 2 {
		return 0
	}
	total := 0.0
	for _, number := range numbers {
		total += math.Pow(number-mean, 2)
	}
	variance := total / float64(len(numbers)-1)
	return math.Sqrt(variance)
}

func Sum(numbers []float64) (total float64) {
	for _, x := range numbers {
		total += x
	}
	return total
}

func Clamp(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Round3 keeps grid parameter values stable across float accumulation.
func Round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// StringIntervalToSeconds converts an exchange interval like "1m", "4h" or
// "1d" into seconds. Unknown intervals fall back to one minute.
func StringIntervalToSeconds(interval string) int {
	if len(interval) < 2 {
		return 60
	}
	value := 0
	for _, r := range interval[:len(interval)-1] {
		if r < '0' || r > '9' {
			return 60
		}
		value = value*10 + int(r-'0')
	}
	switch interval[len(interval)-1] {
	case 's':
		return value
	case 'm':
		return value * 60
	case 'h':
		return value * 3600
	case 'd':
		return value * 86400
	case 'w':
		return value * 604800
	}
	return 60
}
