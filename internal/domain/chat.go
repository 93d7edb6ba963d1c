package domain

import "sort"

type ChatMessage struct {
	Id        string `json:"id"`
	UserId    string `json:"userId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SortMessages orders by timestamp, keeping insertion order for ties.
func SortMessages(messages []ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
}
