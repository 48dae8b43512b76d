package greenbot

import (
	"strconv"
	"strings"

	"GreenBot/entity"
	"GreenBot/internal/lib/validate"
)

const defaultNumQuestions = 3

// KindDef describes what a step kind needs to be stored and presented.
type KindDef struct {
	Kind   entity.StepKind
	Label  string
	Expect []InputKind
	// Hint explains to an author how to type a step of this kind.
	Hint  string
	check func(step *entity.Step) error
}

// Captures reports whether the kind waits for a user response.
func (k KindDef) Captures() bool {
	return len(k.Expect) > 0
}

var catalog = map[entity.StepKind]KindDef{
	entity.StepText: {
		Label:  "✍️ Текстова відповідь",
		Expect: []InputKind{InputText},
		Hint:   "Перший рядок — питання, наступні — опис.",
	},
	entity.StepYesNo: {
		Label:  "✅ Так / Ні",
		Expect: []InputKind{InputCallback, InputText},
		Hint:   "Перший рядок — питання, наступні — опис.",
	},
	entity.StepChoice: {
		Label:  "🔘 Вибір варіанту",
		Expect: []InputKind{InputCallback, InputText},
		Hint:   "Перший рядок — питання, кожен наступний рядок — варіант відповіді.",
		check: func(step *entity.Step) error {
			if len(step.Options) == 0 {
				return invalid("крок вибору потребує хоча б одного варіанту")
			}
			for _, o := range step.Options {
				if strings.TrimSpace(o) == "" {
					return invalid("варіант відповіді не може бути порожнім")
				}
			}
			return nil
		},
	},
	entity.StepFile: {
		Label:  "📎 Завантаження файлу",
		Expect: []InputKind{InputFile, InputText},
		Hint:   "Перший рядок — інструкція, другий (необов'язково) — дозволені типи через кому, напр. pdf, jpg.",
	},
	entity.StepEmail: {
		Label:  "📧 Email",
		Expect: []InputKind{InputText},
		Hint:   "Перший рядок — питання, наступні — опис.",
	},
	entity.StepInfo: {
		Label: "ℹ️ Інформація",
		Hint:  "Перший рядок — заголовок, наступні — текст.",
	},
	entity.StepSound: {
		Label: "🎵 Аудіо",
		Hint:  "Перший рядок — назва, другий — посилання на аудіо, третій (необов'язково) — виконавець.",
		check: func(step *entity.Step) error {
			if step.AudioURL() == "" {
				return invalid("аудіо крок потребує посилання на файл")
			}
			return nil
		},
	},
	entity.StepCallToAction: {
		Label: "🔗 Заклик до дії",
		Hint:  "Перший рядок — текст, другий — посилання, третій (необов'язково) — напис кнопки.",
		check: func(step *entity.Step) error {
			if err := validate.Var(step.Metadata.LinkURL, "required,url"); err != nil {
				return invalid("заклик до дії потребує коректного посилання")
			}
			return nil
		},
	},
	entity.StepConnect: {
		Label:  "🔀 Інший процес",
		Expect: []InputKind{InputCallback},
		Hint:   "Перший рядок — питання, другий — ідентифікатор процесу.",
		check: func(step *entity.Step) error {
			if step.ConnectTarget() == "" {
				return invalid("крок зв'язку потребує ідентифікатора процесу")
			}
			return nil
		},
	},
	entity.StepGenerateQuestions: {
		Label:  "🤖 Згенеровані питання",
		Expect: []InputKind{InputText},
		Hint:   "Перший рядок — тема, другий (необов'язково) — кількість питань.",
		check: func(step *entity.Step) error {
			if step.Metadata.NumQuestions < 1 {
				return invalid("кількість питань має бути більше нуля")
			}
			return nil
		},
	},
	entity.StepFinal: {
		Label: "🏁 Фінал",
		Hint:  "Перший рядок — завершальне повідомлення, наступні — опис.",
	},
}

func init() {
	for k, def := range catalog {
		def.Kind = k
		catalog[k] = def
	}
}

// LookupKind returns the catalog entry of a kind.
func LookupKind(k entity.StepKind) (KindDef, bool) {
	def, ok := catalog[k]
	return def, ok
}

// ValidateStep checks the fields a step's kind requires.
func ValidateStep(step *entity.Step) error {
	def, ok := catalog[step.Type]
	if !ok {
		return invalid("невідомий тип кроку %q", step.Type)
	}
	if strings.TrimSpace(step.Prompt) == "" {
		return invalid("текст кроку не може бути порожнім")
	}
	if def.check != nil {
		return def.check(step)
	}
	return nil
}

// DraftStep builds a step of the given kind from an author's message.
// The first line is the prompt, the remaining lines are the kind payload.
func DraftStep(kind entity.StepKind, text string) (entity.Step, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return entity.Step{}, invalid("повідомлення порожнє")
	}

	step := entity.Step{Type: kind, Prompt: lines[0]}
	rest := lines[1:]
	at := func(i int) string {
		if i < len(rest) {
			return rest[i]
		}
		return ""
	}

	switch kind {
	case entity.StepChoice:
		if len(rest) == 1 && strings.Contains(rest[0], ",") {
			rest = splitList(rest[0])
		}
		step.Options = rest
	case entity.StepConnect:
		step.Metadata.TargetProcessID = at(0)
	case entity.StepSound:
		step.Metadata.AudioURL = at(0)
		step.Metadata.Performer = at(1)
	case entity.StepCallToAction:
		step.Metadata.LinkURL = at(0)
		step.Metadata.LinkLabel = at(1)
		if len(rest) > 2 {
			step.Description = strings.Join(rest[2:], "\n")
		}
	case entity.StepGenerateQuestions:
		step.Metadata.NumQuestions = defaultNumQuestions
		if n, err := strconv.Atoi(at(0)); err == nil {
			step.Metadata.NumQuestions = n
		} else if len(rest) > 0 {
			step.Description = strings.Join(rest, "\n")
		}
		step.Validation.Required = true
	case entity.StepFile:
		step.Validation.FileTypes = normalizeFileTypes(splitList(at(0)))
	default:
		step.Description = strings.Join(rest, "\n")
		if kind == entity.StepText || kind == entity.StepEmail {
			step.Validation.Required = true
		}
	}

	if err := ValidateStep(&step); err != nil {
		return entity.Step{}, err
	}
	return step, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeFileTypes(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), ".")))
	}
	return out
}
