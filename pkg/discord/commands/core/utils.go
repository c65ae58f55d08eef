package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/guildkit/pkg/discord/platform"
	"github.com/small-frappuccino/guildkit/pkg/errors"
)

// OptionExtractor simplifies extraction of options for Discord commands.
// Accessors never panic on a type mismatch; the Required variants report it
// as a field error instead.
type OptionExtractor struct {
	options []*discordgo.ApplicationCommandInteractionDataOption
}

// NewOptionExtractor creates a new option extractor
func NewOptionExtractor(options []*discordgo.ApplicationCommandInteractionDataOption) *OptionExtractor {
	return &OptionExtractor{options: options}
}

func (e *OptionExtractor) find(name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range e.options {
		if opt != nil && opt.Name == name {
			return opt
		}
	}
	return nil
}

func (e *OptionExtractor) lookup(name string, types ...discordgo.ApplicationCommandOptionType) (*discordgo.ApplicationCommandInteractionDataOption, error) {
	opt := e.find(name)
	if opt == nil {
		return nil, errors.MissingField(name)
	}
	if !slices.Contains(types, opt.Type) {
		return nil, errors.InvalidField(name, fmt.Sprint(opt.Value))
	}
	return opt, nil
}

// StringRequired extracts a required string option
func (e *OptionExtractor) StringRequired(name string) (string, error) {
	opt, err := e.lookup(name, discordgo.ApplicationCommandOptionString)
	if err != nil {
		return "", err
	}
	s, ok := opt.Value.(string)
	if !ok {
		return "", errors.InvalidField(name, fmt.Sprint(opt.Value))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.MissingField(name)
	}
	return s, nil
}

// StringOK extracts an optional string option and reports whether it was set
func (e *OptionExtractor) StringOK(name string) (string, bool) {
	s, err := e.StringRequired(name)
	return s, err == nil
}

// String extracts a string option by name
func (e *OptionExtractor) String(name string) string {
	s, _ := e.StringOK(name)
	return s
}

// BoolOK extracts an optional boolean option
func (e *OptionExtractor) BoolOK(name string) (bool, bool) {
	opt, err := e.lookup(name, discordgo.ApplicationCommandOptionBoolean)
	if err != nil {
		return false, false
	}
	b, ok := opt.Value.(bool)
	return b, ok
}

// Bool extracts a boolean option by name
func (e *OptionExtractor) Bool(name string) bool {
	b, _ := e.BoolOK(name)
	return b
}

// IntRequired extracts a required integer option
func (e *OptionExtractor) IntRequired(name string) (int64, error) {
	opt, err := e.lookup(name, discordgo.ApplicationCommandOptionInteger)
	if err != nil {
		return 0, err
	}
	switch v := opt.Value.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr == nil {
			return n, nil
		}
	}
	return 0, errors.InvalidField(name, fmt.Sprint(opt.Value))
}

// IntOK extracts an optional integer option
func (e *OptionExtractor) IntOK(name string) (int64, bool) {
	n, err := e.IntRequired(name)
	return n, err == nil
}

// Int extracts an integer option by name
func (e *OptionExtractor) Int(name string) int64 {
	n, _ := e.IntOK(name)
	return n
}

func (e *OptionExtractor) snowflake(name string, typ discordgo.ApplicationCommandOptionType) (string, error) {
	opt, err := e.lookup(name, typ)
	if err != nil {
		return "", err
	}
	id, ok := opt.Value.(string)
	if !ok || id == "" {
		return "", errors.InvalidField(name, fmt.Sprint(opt.Value))
	}
	return id, nil
}

// RoleRequired extracts the id of a required role option
func (e *OptionExtractor) RoleRequired(name string) (string, error) {
	return e.snowflake(name, discordgo.ApplicationCommandOptionRole)
}

// UserRequired extracts the id of a required user option
func (e *OptionExtractor) UserRequired(name string) (string, error) {
	return e.snowflake(name, discordgo.ApplicationCommandOptionUser)
}

// ChannelRequired extracts the id of a required channel option
func (e *OptionExtractor) ChannelRequired(name string) (string, error) {
	return e.snowflake(name, discordgo.ApplicationCommandOptionChannel)
}

// Role extracts the id of an optional role option
func (e *OptionExtractor) Role(name string) string {
	id, _ := e.RoleRequired(name)
	return id
}

// Channel extracts the id of an optional channel option
func (e *OptionExtractor) Channel(name string) string {
	id, _ := e.ChannelRequired(name)
	return id
}

// HasOption checks whether an option exists
func (e *OptionExtractor) HasOption(name string) bool {
	return e.find(name) != nil
}

// ModalValues returns the text input values of a modal submission keyed by
// input custom id.
func ModalValues(i *discordgo.InteractionCreate) map[string]string {
	values := make(map[string]string)
	if i == nil || i.Type != discordgo.InteractionModalSubmit {
		return values
	}
	for _, row := range i.ModalSubmitData().Components {
		var inner []discordgo.MessageComponent
		switch r := row.(type) {
		case *discordgo.ActionsRow:
			inner = r.Components
		case discordgo.ActionsRow:
			inner = r.Components
		}
		for _, c := range inner {
			switch input := c.(type) {
			case *discordgo.TextInput:
				values[input.CustomID] = input.Value
			case discordgo.TextInput:
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

// ParseEmoji turns a unicode emoji or a custom emoji mention such as
// "<:name:id>" into a component emoji. Empty input yields nil.
func ParseEmoji(s string) *discordgo.ComponentEmoji {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		parts := strings.Split(strings.Trim(s, "<>"), ":")
		if len(parts) == 3 && parts[2] != "" {
			return &discordgo.ComponentEmoji{
				Name:     parts[1],
				ID:       parts[2],
				Animated: parts[0] == "a",
			}
		}
	}
	return &discordgo.ComponentEmoji{Name: s}
}

// UserAuthor renders u as an embed author with its avatar.
func UserAuthor(u *discordgo.User) *discordgo.MessageEmbedAuthor {
	if u == nil {
		return nil
	}
	return &discordgo.MessageEmbedAuthor{Name: u.String(), IconURL: u.AvatarURL("")}
}

// UserThumbnail renders the avatar of u as an embed thumbnail.
func UserThumbnail(u *discordgo.User) *discordgo.MessageEmbedThumbnail {
	if u == nil {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")}
}

// UserColor returns the profile accent color of u, or fallback when unset.
func UserColor(u *discordgo.User, fallback int) int {
	if u == nil || u.AccentColor == 0 {
		return fallback
	}
	return u.AccentColor
}

// GuildAuthor renders g as an embed author with its icon.
func GuildAuthor(g *discordgo.Guild) *discordgo.MessageEmbedAuthor {
	if g == nil {
		return nil
	}
	return &discordgo.MessageEmbedAuthor{Name: g.Name, IconURL: g.IconURL("")}
}

// Row wraps components in a single action row, or returns nil when empty.
func Row(components ...discordgo.MessageComponent) []discordgo.MessageComponent {
	if len(components) == 0 {
		return nil
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: components}}
}

// Rows splits buttons into action rows of at most five.
func Rows(buttons []discordgo.MessageComponent) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += 5 {
		end := min(start+5, len(buttons))
		rows = append(rows, discordgo.ActionsRow{Components: buttons[start:end]})
	}
	return rows
}

// PermissionChecker manages user permission checks
type PermissionChecker struct {
	session platform.Client
}

func NewPermissionChecker(session platform.Client) *PermissionChecker {
	return &PermissionChecker{session: session}
}

// HasPermission reports whether the invoking member holds every bit of perm.
// Administrators and the guild owner always pass.
func (pc *PermissionChecker) HasPermission(ctx *Context, perm int64) bool {
	if perm == 0 {
		return true
	}
	if ctx.GuildID == "" || ctx.Member == nil {
		return false
	}
	granted := ctx.Member.Permissions
	if granted&discordgo.PermissionAdministrator != 0 || granted&perm == perm {
		return true
	}
	return pc.IsOwner(ctx.GuildID, ctx.UserID)
}

// HasRole checks whether the user has a specific role
func (pc *PermissionChecker) HasRole(guildID, userID, roleID string) bool {
	if pc.session == nil {
		return false
	}
	member, err := pc.session.GuildMember(guildID, userID)
	if err != nil || member == nil {
		return false
	}
	return slices.Contains(member.Roles, roleID)
}

// IsOwner checks whether the user is the server owner
func (pc *PermissionChecker) IsOwner(guildID, userID string) bool {
	if guildID == "" || pc.session == nil {
		return false
	}
	g, err := pc.session.Guild(guildID)
	if err != nil || g == nil {
		return false
	}
	return g.OwnerID == userID
}

// StringUtils provides utilities for string manipulation
type StringUtils struct{}

// TruncateString truncates a string to maxLen runes
func (StringUtils) TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// ValidateStringLength validates a string length in runes
func (StringUtils) ValidateStringLength(s string, minLen, maxLen int, fieldName string) error {
	n := len([]rune(s))
	if n < minLen || n > maxLen {
		return errors.InvalidField(fieldName, s)
	}
	return nil
}

// CompareCommands compares two commands to check if they are semantically equal
func CompareCommands(a, b *discordgo.ApplicationCommand) bool {
	type comparable struct {
		Name                     string                                `json:"name"`
		Description              string                                `json:"description"`
		Options                  []*discordgo.ApplicationCommandOption `json:"options"`
		DefaultMemberPermissions *int64                                `json:"default_member_permissions"`
	}
	ba, _ := json.Marshal(comparable{a.Name, a.Description, a.Options, a.DefaultMemberPermissions})
	bb, _ := json.Marshal(comparable{b.Name, b.Description, b.Options, b.DefaultMemberPermissions})
	return string(ba) == string(bb)
}

// RemoveAtIndex removes the item at index, leaving the slice untouched when out of range
func RemoveAtIndex[T any](slice []T, index int) []T {
	if index < 0 || index >= len(slice) {
		return slice
	}
	return append(slice[:index], slice[index+1:]...)
}
