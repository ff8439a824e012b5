package discord

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"schedule-bot/datastore"
)

type stableOption struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        int            `json:"type"`
	Required    bool           `json:"required"`
	Choices     []stableChoice `json:"choices,omitempty"`
	MinValue    *float64       `json:"min_value,omitempty"`
	MaxValue    float64        `json:"max_value,omitempty"`
	Options     []stableOption `json:"options,omitempty"`
}

type stableChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// hashCommand is a SHA-1 over the fields Discord compares, so an unchanged
// definition is not registered again.
func hashCommand(c *discordgo.ApplicationCommand) string {
	data, _ := json.Marshal(struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Type        int            `json:"type"`
		Options     []stableOption `json:"options,omitempty"`
	}{c.Name, c.Description, int(c.Type), stableOptions(c.Options)})
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func stableOptions(opts []*discordgo.ApplicationCommandOption) []stableOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]stableOption, 0, len(opts))
	for _, o := range opts {
		so := stableOption{
			Name:        o.Name,
			Description: o.Description,
			Type:        int(o.Type),
			Required:    o.Required,
			MinValue:    o.MinValue,
			MaxValue:    o.MaxValue,
			Options:     stableOptions(o.Options),
		}
		for _, ch := range o.Choices {
			so.Choices = append(so.Choices, stableChoice{Name: ch.Name, Value: ch.Value})
		}
		out = append(out, so)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// hashCache keeps the last registered hash of each command per guild.
type hashCache struct {
	ds *datastore.DataStore
}

func (h hashCache) load(guildID string) map[string]string {
	out := make(map[string]string)
	if h.ds != nil {
		_, _ = h.ds.Get("commands:"+guildID, &out)
	}
	return out
}

func (h hashCache) save(guildID string, hashes map[string]string) error {
	if h.ds == nil {
		return nil
	}
	if err := h.ds.Put("commands:"+guildID, hashes); err != nil {
		return err
	}
	return h.ds.Flush()
}
