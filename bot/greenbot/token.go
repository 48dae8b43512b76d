package greenbot

import (
	"fmt"
	"strconv"
	"strings"
)

// Namespaces of action tokens.
const (
	NamespaceNav  = "nav"
	NamespaceStep = "step"
	NamespaceView = "view"
	NamespaceMenu = "menu"
	NamespaceAdd  = "add"
)

// Navigation and step actions.
const (
	ActionPrev       = "prev"
	ActionNext       = "next"
	ActionExit       = "exit"
	ActionYes        = "yes"
	ActionNo         = "no"
	ActionConnectYes = "connect_yes"
	ActionConnectNo  = "connect_no"
	ActionDecline    = "decline"
	ActionStart      = "start"

	optionPrefix = "option_"
)

// Authoring menu actions.
const (
	ActionOpen            = "open"
	ActionPublish         = "publish"
	ActionArchive         = "archive"
	ActionDelete          = "delete"
	ActionConfirmDelete   = "confirm_delete"
	ActionEditTitle       = "edit_title"
	ActionEditDescription = "edit_description"
	ActionEditImage       = "edit_image"
	ActionPreview         = "preview"
	ActionAddStep         = "add_step"
	ActionInsertBefore    = "insert_before"
	ActionInsertAfter     = "insert_after"
	ActionEditPrompt      = "edit_prompt"
)

// maxTokenLength is the Telegram limit for callback data.
const maxTokenLength = 64

// Token is a decoded action token: "<namespace>_<action>_<processId>".
// The action may itself contain underscores.
type Token struct {
	Namespace string
	Action    string
	ProcessID string
}

// EncodeToken joins the parts with underscores. The process id must not
// contain underscores, or decoding would be ambiguous.
func EncodeToken(namespace, action, processID string) string {
	return namespace + "_" + action + "_" + processID
}

// ParseToken decodes a token. The first segment is the namespace, the last
// is the process id and everything between is the action.
func ParseToken(data string) (Token, error) {
	parts := strings.Split(data, "_")
	if len(parts) < 3 {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidActionToken, data)
	}
	t := Token{
		Namespace: parts[0],
		Action:    strings.Join(parts[1:len(parts)-1], "_"),
		ProcessID: parts[len(parts)-1],
	}
	if t.Namespace == "" || t.Action == "" || t.ProcessID == "" {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidActionToken, data)
	}
	switch t.Namespace {
	case NamespaceNav, NamespaceStep, NamespaceView, NamespaceMenu, NamespaceAdd:
	default:
		return Token{}, fmt.Errorf("%w: unknown namespace %q", ErrInvalidActionToken, t.Namespace)
	}
	return t, nil
}

// String re-encodes the token.
func (t Token) String() string {
	return EncodeToken(t.Namespace, t.Action, t.ProcessID)
}

// OptionAction builds the step action that selects option i.
func OptionAction(i int) string {
	return optionPrefix + strconv.Itoa(i)
}

// OptionIndex returns the option index of an option action.
func (t Token) OptionIndex() (int, bool) {
	if !strings.HasPrefix(t.Action, optionPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(t.Action, optionPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// PositionAction suffixes an action with the sorted index of the step whose
// message carries the button.
func PositionAction(action string, index int) string {
	return action + "_" + strconv.Itoa(index)
}

// Position splits a positioned action into the bare action and the step
// index it was rendered for.
func (t Token) Position() (string, int, bool) {
	i := strings.LastIndex(t.Action, "_")
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(t.Action[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return t.Action[:i], n, true
}

// FitsCallback reports whether the encoded token fits a Telegram callback.
func FitsCallback(token string) bool {
	return len(token) <= maxTokenLength
}
