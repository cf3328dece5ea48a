// ABOUTME: Hero card rendering: title, subtitle, text, images, then one button per action
// ABOUTME: Missing fields are skipped so partial cards still render

package translate

import (
	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/richcontent"
)

func heroCard(card activity.HeroCard) *richcontent.RichContent {
	var elements []richcontent.Element

	if card.Title != "" {
		elements = append(elements, richcontent.Text{
			Text:    card.Title,
			Tooltip: card.Title,
			Style:   richcontent.Style{Bold: true},
		})
	}
	if card.Subtitle != "" {
		elements = append(elements, richcontent.Text{Text: card.Subtitle, Tooltip: card.Subtitle})
	}
	if card.Text != "" {
		elements = append(elements, richcontent.Text{Text: card.Text, Tooltip: card.Text})
	}
	for _, img := range card.Images {
		if img.URL == "" {
			continue
		}
		elements = append(elements, richcontent.Image{URL: img.URL, Tooltip: img.Alt})
	}
	for _, b := range card.Buttons {
		elements = append(elements, actionButton(b))
	}

	return richcontent.NewCard(elements...)
}
