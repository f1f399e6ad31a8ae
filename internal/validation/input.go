package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinTitleLength       = 3
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxNoteLength        = 2000
	MaxServiceTypeLength = 100
	MaxImagesCount       = 10
	MaxImageURLLength    = 500
	MinAmount            = 0.0
	MaxAmount            = 100000000.0 // 100 миллионов
	MinScore             = 1
	MaxScore             = 5
	MaxRadiusKm          = 200.0
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateAmount проверяет сумму предложения.
func ValidateAmount(amount float64) error {
	if amount <= MinAmount {
		return fmt.Errorf("сумма должна быть больше нуля")
	}
	if amount > MaxAmount {
		return fmt.Errorf("сумма не может превышать %.0f", MaxAmount)
	}
	return nil
}

// ValidateCurrency проверяет трёхбуквенный код валюты (ISO 4217).
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("валюта должна быть трёхбуквенным кодом, например YER")
	}
	return nil
}

// ValidateScore проверяет оценку выполненной работы.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("оценка должна быть от %d до %d", MinScore, MaxScore)
	}
	return nil
}

// ValidateCoordinates проверяет широту и долготу.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("широта должна быть в диапазоне от -90 до 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("долгота должна быть в диапазоне от -180 до 180")
	}
	return nil
}

// ValidateRadius проверяет радиус поиска ближайших заявок.
func ValidateRadius(radiusKm float64) error {
	if radiusKm <= 0 {
		return fmt.Errorf("радиус поиска должен быть больше нуля")
	}
	if radiusKm > MaxRadiusKm {
		return fmt.Errorf("радиус поиска не может превышать %.0f км", MaxRadiusKm)
	}
	return nil
}

// ValidateImageURLs проверяет список ссылок на изображения заявки.
func ValidateImageURLs(urls []string) error {
	if len(urls) > MaxImagesCount {
		return fmt.Errorf("не более %d изображений на заявку", MaxImagesCount)
	}
	for _, raw := range urls {
		if len(raw) > MaxImageURLLength {
			return fmt.Errorf("ссылка на изображение слишком длинная")
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("некорректная ссылка на изображение: %s", raw)
		}
	}
	return nil
}

// SanitizeString убирает лишние пробелы по краям и управляющие символы.
func SanitizeString(value string) string {
	value = strings.TrimSpace(value)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, value)
}
