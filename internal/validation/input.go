package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength           = 3
	MaxUsernameLength           = 30
	MinDisplayNameLength        = 2
	MaxDisplayNameLength        = 100
	MaxCaptionLength            = 2000
	MaxCommentLength            = 1000
	MinServiceTitleLength       = 3
	MaxServiceTitleLength       = 200
	MinServiceDescriptionLength = 10
	MaxServiceDescriptionLength = 5000
	MinDisputeReasonLength      = 3
	MaxDisputeReasonLength      = 200
	MaxDisputeDetailsLength     = 5000
	MaxBioLength                = 1000
	MaxLocationLength           = 200
	MaxNotesLength              = 2000
	MinAmount                   = 0.0
	MaxAmount                   = 1000000.0 // 1 миллион
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

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

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUsername проверяет имя пользователя: только буквы латиницы,
// цифры и подчеркивание, не короче трёх символов.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	return nil
}

// ValidateDisplayName проверяет отображаемое имя.
func ValidateDisplayName(displayName string) error {
	if displayName == "" {
		return fmt.Errorf("отображаемое имя обязательно")
	}

	displayName = strings.TrimSpace(displayName)

	if err := ValidateLength("отображаемое имя", displayName, MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}

	return nil
}

// ValidateCaption проверяет подпись публикации.
func ValidateCaption(caption *string) error {
	if caption != nil && *caption != "" {
		c := strings.TrimSpace(*caption)
		if err := ValidateLength("подпись", c, 0, MaxCaptionLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCommentContent проверяет текст комментария.
func ValidateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("комментарий не может быть пустым")
	}
	return ValidateLength("комментарий", content, 1, MaxCommentLength)
}

// ValidateServiceTitle проверяет название услуги.
func ValidateServiceTitle(title string) error {
	if title == "" {
		return fmt.Errorf("название услуги обязательно")
	}

	title = strings.TrimSpace(title)

	return ValidateLength("название услуги", title, MinServiceTitleLength, MaxServiceTitleLength)
}

// ValidateServiceDescription проверяет описание услуги.
func ValidateServiceDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание услуги обязательно")
	}

	description = strings.TrimSpace(description)

	return ValidateLength("описание услуги", description, MinServiceDescriptionLength, MaxServiceDescriptionLength)
}

// ValidateDisputeReason проверяет причину спора.
func ValidateDisputeReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("причина спора обязательна")
	}
	return ValidateLength("причина спора", reason, MinDisputeReasonLength, MaxDisputeReasonLength)
}

// ValidateDisputeDetails проверяет описание спора.
func ValidateDisputeDetails(details *string) error {
	if details != nil && *details != "" {
		d := strings.TrimSpace(*details)
		if err := ValidateLength("описание спора", d, 0, MaxDisputeDetailsLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(amount float64) error {
	if amount <= MinAmount {
		return fmt.Errorf("сумма должна быть положительной")
	}
	if amount > MaxAmount {
		return fmt.Errorf("сумма не может превышать %.0f", MaxAmount)
	}
	return nil
}

// ValidateBio проверяет биографию профиля.
func ValidateBio(bio *string) error {
	if bio != nil && *bio != "" {
		b := strings.TrimSpace(*bio)
		if err := ValidateLength("биография", b, 0, MaxBioLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLocation проверяет местоположение.
func ValidateLocation(location *string) error {
	if location != nil && *location != "" {
		loc := strings.TrimSpace(*location)
		if err := ValidateLength("местоположение", loc, 0, MaxLocationLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNotes проверяет заметки к бронированию.
func ValidateNotes(notes *string) error {
	if notes != nil && *notes != "" {
		n := strings.TrimSpace(*notes)
		if err := ValidateLength("заметки", n, 0, MaxNotesLength); err != nil {
			return err
		}
	}
	return nil
}
