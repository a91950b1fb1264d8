package model

import "time"

// Stickers come in two disjoint flavours distinguished only by their
// states: a state carrying a begin/end range makes the whole sticker a
// sprint sticker, otherwise it is a plain string sticker. Each flavour has
// its own pair of tables; child states are always replaced wholesale on
// upsert, never merged.

type SprintSticker struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Deleted bool          `json:"deleted"`
	States  []SprintState `json:"states,omitempty"`
}

type SprintState struct {
	ID        string     `json:"id"`
	StickerID string     `json:"sticker_id"`
	Name      string     `json:"name"`
	Begin     *time.Time `json:"begin,omitempty"`
	End       *time.Time `json:"end,omitempty"`
}

type StringSticker struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Deleted bool          `json:"deleted"`
	States  []StringState `json:"states,omitempty"`
}

type StringState struct {
	ID        string `json:"id"`
	StickerID string `json:"sticker_id"`
	Name      string `json:"name"`
}
