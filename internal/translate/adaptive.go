// ABOUTME: Recursive adaptive card walker producing rich content elements
// ABOUTME: Nesting of containers, column sets and fact sets mirrors the source tree

package translate

import (
	"strings"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/richcontent"
)

// Adaptive card element types.
const (
	elemContainer = "Container"
	elemColumnSet = "ColumnSet"
	elemColumn    = "Column"
	elemFactSet   = "FactSet"
	elemImageSet  = "ImageSet"
	elemTextBlock = "TextBlock"
	elemImage     = "Image"
	elemMedia     = "Media"
	elemActionSet = "ActionSet"
)

func adaptiveCard(card activity.AdaptiveCard) *richcontent.RichContent {
	elements := walkElements(card.Body)
	if row := buttonRow(card.Actions); row != nil {
		elements = append(elements, row)
	}
	return richcontent.NewCard(elements...)
}

func walkElements(items []activity.CardElement) []richcontent.Element {
	var out []richcontent.Element
	for _, item := range items {
		out = append(out, walkElement(item)...)
	}
	return out
}

// walkElement returns zero or more elements for one adaptive element. Unknown types
// render nothing.
func walkElement(el activity.CardElement) []richcontent.Element {
	switch el.Type {
	case elemContainer:
		return walkElements(el.Items)

	case elemColumnSet:
		columns := make([]richcontent.Element, 0, len(el.Columns))
		for _, col := range el.Columns {
			columns = append(columns, column(col))
		}
		return []richcontent.Element{richcontent.Container{Orientation: richcontent.Horizontal, Children: columns}}

	case elemColumn:
		return []richcontent.Element{column(el)}

	case elemFactSet:
		rows := make([]richcontent.Element, 0, len(el.Facts))
		for _, f := range el.Facts {
			rows = append(rows, factRow(f))
		}
		return []richcontent.Element{richcontent.Container{Orientation: richcontent.Vertical, Children: rows}}

	case elemImageSet:
		images := make([]richcontent.Element, 0, len(el.Images))
		for _, img := range el.Images {
			if img.URL == "" {
				continue
			}
			images = append(images, richcontent.Image{URL: img.URL, Tooltip: img.AltText})
		}
		return []richcontent.Element{richcontent.Container{Orientation: richcontent.Horizontal, Children: images}}

	case elemTextBlock:
		if el.Text == "" {
			return nil
		}
		return []richcontent.Element{textBlock(el)}

	case elemImage:
		if el.URL == "" {
			return nil
		}
		return []richcontent.Element{richcontent.Image{URL: el.URL, Tooltip: el.AltText}}

	case elemMedia:
		if el.Poster == "" {
			return nil
		}
		return []richcontent.Element{richcontent.Image{URL: el.Poster, Tooltip: el.AltText}}

	case elemActionSet:
		if row := buttonRow(el.Actions); row != nil {
			return []richcontent.Element{row}
		}
		return nil

	default:
		return nil
	}
}

func column(col activity.CardElement) richcontent.Container {
	return richcontent.Container{Orientation: richcontent.Vertical, Children: walkElements(col.Items)}
}

func textBlock(el activity.CardElement) richcontent.Text {
	text := SubstituteTokens(el.Text)
	return richcontent.Text{
		Text:    text,
		Tooltip: text,
		Style: richcontent.Style{
			Bold:  strings.EqualFold(el.Weight, "bolder"),
			Size:  strings.ToLower(el.Size),
			Color: el.Color,
		},
	}
}

// factRow renders a bold label next to the value. A value written as a markdown link
// becomes a link button.
func factRow(f activity.Fact) richcontent.Container {
	label := richcontent.Text{Text: f.Title, Tooltip: f.Title, Style: richcontent.Style{Bold: true}}

	var value richcontent.Element = richcontent.Text{Text: f.Value, Tooltip: f.Value}
	if title, uri, ok := parseFactLink(f.Value); ok {
		value = richcontent.Button{
			Tooltip: title,
			Title:   title,
			Actions: []richcontent.ButtonAction{richcontent.Link{Name: title, URI: uri}},
		}
	}

	return richcontent.Container{
		Orientation: richcontent.Horizontal,
		Children:    []richcontent.Element{label, value},
	}
}

// buttonRow collects actions into one horizontal container, or nil when there are none.
func buttonRow(actions []activity.CardAction) richcontent.Element {
	if len(actions) == 0 {
		return nil
	}
	buttons := make([]richcontent.Element, 0, len(actions))
	for _, a := range actions {
		buttons = append(buttons, actionButton(a))
	}
	return richcontent.Container{Orientation: richcontent.Horizontal, Children: buttons}
}
