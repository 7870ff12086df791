// Package page rewrites the quiz HTML before it is served: it wraps
// text-to-speech elements into trigger buttons and assigns every trigger
// an id the controller can address.
package page

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mavwarf/quizspeak/internal/playback"
)

// Selectors and attributes shared with the page script.
const (
	DecorateSelector = ".text-to-speech"
	TriggerSelector  = "[data-tts-text]"
	AttrText         = "data-tts-text"
	AttrID           = "data-tts-id"
)

const speakerIcon = `<svg xmlns="http://www.w3.org/2000/svg" width="24" height="24" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round">` +
	`<polygon points="11 5 6 9 2 9 2 15 6 15 11 19 11 5"></polygon>` +
	`<path d="M15.54 8.46a5 5 0 0 1 0 7.07"></path>` +
	`<path d="M19.07 4.93a10 10 0 0 1 0 14.14"></path>` +
	`</svg>`

// Options control page preparation.
type Options struct {
	Labels       playback.Labels
	TimerEnabled bool
	TimerSeconds int
	// TimerText, when set, becomes the initial text of #timer.
	TimerText string
	// Script is appended to <body> unless a script with the same src is
	// already present. Empty skips injection.
	Script string
}

// Decorate replaces every .text-to-speech element with a
// span.text-with-audio holding its original inner HTML followed by a
// trigger button. It returns the number of elements wrapped.
func Decorate(doc *goquery.Document, labels playback.Labels) int {
	n := 0
	doc.Find(DecorateSelector).Each(func(_ int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil {
			return
		}
		text := strings.TrimSpace(s.Text())
		s.ReplaceWithHtml(`<span class="text-with-audio">` + inner + button(text, labels) + `</span>`)
		n++
	})
	return n
}

func button(text string, l playback.Labels) string {
	play := html.EscapeString(l.Play)
	return fmt.Sprintf(`<button type="button" class="%s" %s="%s" aria-label="%s" title="%s">%s`+
		`<span class="audio-progress"><span class="audio-progress-bar"></span></span></button>`,
		playback.ClassButton, AttrText, html.EscapeString(text), play, play, speakerIcon)
}

// Bind gives every trigger element a stable data-tts-id, keeping ids
// already present, and returns the triggers in document order.
func Bind(doc *goquery.Document) []playback.Trigger {
	var triggers []playback.Trigger
	seen := make(map[string]bool)
	next := 1
	doc.Find(TriggerSelector).Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr(AttrID)
		if !ok || id == "" || seen[id] {
			for {
				id = "tts-" + strconv.Itoa(next)
				next++
				if !seen[id] && doc.Find(`[`+AttrID+`="`+id+`"]`).Length() == 0 {
					break
				}
			}
			s.SetAttr(AttrID, id)
		}
		seen[id] = true
		text, _ := s.Attr(AttrText)
		triggers = append(triggers, playback.Trigger{ID: playback.TriggerID(id), Text: strings.TrimSpace(text)})
	})
	return triggers
}

// Prepare decorates and binds src and stamps the timer settings on <body>.
func Prepare(src string, opts Options) (string, []playback.Trigger, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", nil, fmt.Errorf("page: parse: %w", err)
	}
	Decorate(doc, opts.Labels)
	triggers := Bind(doc)

	body := doc.Find("body")
	body.SetAttr("data-timer-enabled", strconv.FormatBool(opts.TimerEnabled))
	body.SetAttr("data-timer-seconds", strconv.Itoa(opts.TimerSeconds))
	if opts.TimerText != "" {
		doc.Find("#timer").SetText(opts.TimerText)
	}
	if opts.Script != "" && doc.Find(`script[src="`+opts.Script+`"]`).Length() == 0 {
		body.AppendHtml(`<script src="` + html.EscapeString(opts.Script) + `"></script>`)
	}

	out, err := doc.Html()
	if err != nil {
		return "", nil, fmt.Errorf("page: render: %w", err)
	}
	return out, triggers, nil
}
