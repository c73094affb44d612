package models

import (
	"encoding/json"
	"strings"
)

// Типы контента публикации
const (
	PostContentImage = "image"
	PostContentText  = "text"
)

// PostContent — явный тегированный вариант контента публикации.
// Записывается всегда в этом формате; историческое поле image_url могло
// содержать голый URL, data URL или JSON-массив строк, поэтому декодер
// нормализует legacy-данные при чтении.
type PostContent struct {
	Type    string   `json:"type"`
	URLs    []string `json:"urls,omitempty"`
	Content string   `json:"content,omitempty"`
}

// NewImageContent создаёт контент с набором изображений.
func NewImageContent(urls []string) PostContent {
	return PostContent{Type: PostContentImage, URLs: urls}
}

// NewTextContent создаёт текстовый контент.
func NewTextContent(text string) PostContent {
	return PostContent{Type: PostContentText, Content: text}
}

// Encode сериализует контент в каноническую строку для хранения.
func (c PostContent) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodePostContent разбирает сохранённый контент публикации.
// Порядок эвристик для legacy-строк:
//  1. тегированный JSON-объект с полем type;
//  2. JSON-массив строк — набор изображений;
//  3. голый URL или data URL — одно изображение;
//  4. всё остальное — текст.
func DecodePostContent(raw string) PostContent {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewTextContent("")
	}

	if strings.HasPrefix(raw, "{") {
		var tagged PostContent
		if err := json.Unmarshal([]byte(raw), &tagged); err == nil &&
			(tagged.Type == PostContentImage || tagged.Type == PostContentText) {
			return tagged
		}
	}

	if strings.HasPrefix(raw, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(raw), &urls); err == nil && len(urls) > 0 {
			return NewImageContent(urls)
		}
	}

	if looksLikeURL(raw) {
		return NewImageContent([]string{raw})
	}

	return NewTextContent(raw)
}

// looksLikeURL проверяет, похожа ли строка на адрес изображения.
func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "data:")
}
