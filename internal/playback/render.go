package playback

import "strconv"

// Labels are the accessible labels of a trigger button.
type Labels struct {
	Play string `json:"play"`
	Stop string `json:"stop"`
}

// DefaultLabels are the French labels of the quiz page.
func DefaultLabels() Labels {
	return Labels{
		Play: "Écouter le texte",
		Stop: "Arrêter la lecture",
	}
}

// Visual is the rendered form of a TriggerState: the attributes the page
// applies to the button and its progress bar.
type Visual struct {
	Classes   []string `json:"classes"`
	AriaLabel string   `json:"aria_label"`
	Title     string   `json:"title"`
	Progress  string   `json:"progress"` // CSS width of .audio-progress-bar
}

// Class names applied to trigger buttons.
const (
	ClassButton  = "tts-button"
	ClassPlaying = "playing"
	ClassLoading = "loading"
)

// Render maps a trigger state to its visual attributes.
func Render(s TriggerState, l Labels) Visual {
	v := Visual{
		Classes:   []string{ClassButton},
		AriaLabel: l.Play,
		Title:     l.Play,
		Progress:  strconv.FormatFloat(s.Level, 'f', -1, 64) + "%",
	}
	if s.Playing {
		v.Classes = append(v.Classes, ClassPlaying)
		v.AriaLabel = l.Stop
	}
	if s.Loading {
		v.Classes = append(v.Classes, ClassLoading)
	}
	return v
}
