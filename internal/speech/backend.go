package speech

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Mavwarf/quizspeak/internal/voice"
)

// command is one invocation of a speech CLI.
type command struct {
	bin   string
	args  []string
	stdin string
}

// backend describes how a host speech CLI speaks text and lists voices.
type backend struct {
	name   string
	speak  func(u voice.Utterance) command
	voices command
	parse  func(out []byte) []voice.Voice
}

// baseWPM is the speaking rate, in words per minute, for rate 1.0.
const baseWPM = 175

func wpm(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return int(math.Round(baseWPM * rate))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// espeakBackend drives espeak-ng or espeak. Text goes through stdin so it
// is never parsed as a flag.
func espeakBackend(bin string) backend {
	return backend{
		name: "espeak",
		speak: func(u voice.Utterance) command {
			v := u.Voice.ID
			if v == "" {
				v = strings.ToLower(u.Locale)
			}
			return command{
				bin: bin,
				args: []string{
					"-v", v,
					"-s", fmt.Sprint(wpm(u.Rate)),
					"-p", fmt.Sprint(clampInt(int(math.Round(u.Pitch*50)), 0, 99)),
					"-a", fmt.Sprint(clampInt(int(math.Round(u.Volume*100)), 0, 200)),
					"--stdin",
				},
				stdin: u.Text,
			}
		},
		voices: command{bin: bin, args: []string{"--voices"}},
		parse:  parseEspeakVoices,
	}
}

// parseEspeakVoices reads the table printed by "espeak-ng --voices":
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseEspeakVoices(out []byte) []voice.Voice {
	var voices []voice.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || f[0] == "Pty" {
			continue
		}
		locale := voice.NormalizeLocale(f[1])
		voices = append(voices, voice.Voice{
			ID:           f[1],
			Name:         strings.ReplaceAll(f[3], "_", " "),
			Locale:       locale,
			LocalService: true,
		})
	}
	return voices
}

// sayBackend drives the macOS say command. "-f -" reads the text from stdin.
func sayBackend(bin string) backend {
	return backend{
		name: "say",
		speak: func(u voice.Utterance) command {
			args := []string{}
			if u.Voice.ID != "" {
				args = append(args, "-v", u.Voice.ID)
			}
			args = append(args,
				"-r", fmt.Sprint(wpm(u.Rate)),
				fmt.Sprintf("--volume=%.2f", math.Max(0, math.Min(1, u.Volume))),
				"-f", "-",
			)
			return command{bin: bin, args: args, stdin: u.Text}
		},
		voices: command{bin: bin, args: []string{"-v", "?"}},
		parse:  parseSayVoices,
	}
}

// say -v ? prints "Name<spaces>locale<spaces># sample"; names may contain
// spaces, e.g. "Good News  en_US    # Hello!".
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

func parseSayVoices(out []byte) []voice.Voice {
	var voices []voice.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := sayVoiceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, voice.Voice{
			ID:           name,
			Name:         name,
			Locale:       voice.NormalizeLocale(m[2]),
			LocalService: true,
		})
	}
	return voices
}

const sapiPrelude = "Add-Type -AssemblyName System.Speech; " +
	"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; "

// sapiBackend drives System.Speech through PowerShell.
func sapiBackend(bin string) backend {
	return backend{
		name: "sapi",
		speak: func(u voice.Utterance) command {
			var b strings.Builder
			b.WriteString(sapiPrelude)
			fmt.Fprintf(&b, "$s.Volume = %d; ", clampInt(int(math.Round(u.Volume*100)), 0, 100))
			fmt.Fprintf(&b, "$s.Rate = %d; ", sapiRate(u.Rate))
			if u.Voice.ID != "" {
				fmt.Fprintf(&b, "try { $s.SelectVoice('%s') } catch {}; ", escapePowerShell(u.Voice.ID))
			}
			fmt.Fprintf(&b, "$s.Speak('%s')", escapePowerShell(u.Text))
			return command{bin: bin, args: []string{"-NoProfile", "-NonInteractive", "-Command", b.String()}}
		},
		voices: command{bin: bin, args: []string{"-NoProfile", "-NonInteractive", "-Command",
			sapiPrelude + "$s.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + '|' + $_.VoiceInfo.Culture.Name }"}},
		parse: parseSAPIVoices,
	}
}

// sapiRate maps a rate multiplier onto SAPI's -10..10 scale, where each
// step is roughly a tenth faster or slower.
func sapiRate(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return clampInt(int(math.Round((rate-1)*10)), -10, 10)
}

// parseSAPIVoices reads "Name|culture" lines.
func parseSAPIVoices(out []byte) []voice.Voice {
	var voices []voice.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, culture, ok := strings.Cut(strings.TrimSpace(sc.Text()), "|")
		if !ok || name == "" {
			continue
		}
		voices = append(voices, voice.Voice{
			ID:           name,
			Name:         name,
			Locale:       voice.NormalizeLocale(culture),
			LocalService: true,
		})
	}
	return voices
}

// escapePowerShell escapes a string for use inside PowerShell single quotes.
func escapePowerShell(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
