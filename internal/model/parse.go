package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	customEmojiRe = regexp.MustCompile(`^<(a?):([A-Za-z0-9_~]{1,32}):(\d{1,20})>$`)
	roleMentionRe = regexp.MustCompile(`^<@&(\d{1,20})>$`)
	messageLinkRe = regexp.MustCompile(`^https?://(?:ptb\.|canary\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)/(\d+)(?:[/?#]|$)`)
)

// ParseEmoji parses emoji markup as typed in chat. Custom emoji use the
// <:name:id> or <a:name:id> form; anything else must be a literal
// non-ASCII string without whitespace (a standard unicode emoji).
func ParseEmoji(s string) (EmojiKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmojiKey{}, fmt.Errorf("%w: empty", ErrMalformedEmoji)
	}

	if m := customEmojiRe.FindStringSubmatch(s); m != nil {
		id, err := strconv.ParseUint(m[3], 10, 64)
		if err != nil || id == 0 {
			return EmojiKey{}, fmt.Errorf("%w: bad custom emoji id %q", ErrMalformedEmoji, m[3])
		}
		return EmojiKey{ID: id, Name: m[2], Animated: m[1] == "a"}, nil
	}
	if strings.HasPrefix(s, "<") {
		return EmojiKey{}, fmt.Errorf("%w: %q is not custom emoji markup", ErrMalformedEmoji, s)
	}

	ascii := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			return EmojiKey{}, fmt.Errorf("%w: %q contains whitespace", ErrMalformedEmoji, s)
		}
		if r > unicode.MaxASCII {
			ascii = false
		}
	}
	if ascii {
		return EmojiKey{}, fmt.Errorf("%w: %q is not an emoji", ErrMalformedEmoji, s)
	}
	return EmojiKey{Name: s}, nil
}

// ParseRoleRef accepts a raw role id or a <@&id> role mention.
func ParseRoleRef(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if m := roleMentionRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedRole, s)
	}
	return id, nil
}

// MessageRef locates a message through its link.
type MessageRef struct {
	TenantID  uint64
	ChannelID uint64
	MessageID uint64
}

// URL renders the canonical message link.
func (r MessageRef) URL() string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", r.TenantID, r.ChannelID, r.MessageID)
}

// ParseMessageLink decodes a message link of the form
// https://[ptb.|canary.]discord[app].com/channels/<guild>/<channel>/<message>.
// Links wrapped in <> to suppress embeds are accepted. The whole argument
// must be the link; trailing text after the message id is rejected.
func ParseMessageLink(s string) (MessageRef, error) {
	m := messageLinkRe.FindStringSubmatch(strings.Trim(strings.TrimSpace(s), "<>"))
	if m == nil {
		return MessageRef{}, fmt.Errorf("%w: %q is not a message link", ErrMalformedMessageRef, s)
	}

	var ids [3]uint64
	for i := range ids {
		id, err := strconv.ParseUint(m[i+1], 10, 64)
		if err != nil || id == 0 {
			return MessageRef{}, fmt.Errorf("%w: bad id %q", ErrMalformedMessageRef, m[i+1])
		}
		ids[i] = id
	}
	return MessageRef{TenantID: ids[0], ChannelID: ids[1], MessageID: ids[2]}, nil
}
