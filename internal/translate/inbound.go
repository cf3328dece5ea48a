// ABOUTME: Push delivery to Activity translation for messages arriving over the push protocol
// ABOUTME: The resolved customer id travels as channel data; the originator as From

package translate

import (
	"strconv"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/push"
)

// ChannelID identifies activities that arrived over the push protocol.
const ChannelID = "liveperson"

// ToActivity translates a reconciled consumer message into a message activity.
func ToActivity(d push.Delivery, customerID string) *activity.Activity {
	return &activity.Activity{
		Type: activity.TypeMessage,
		ID:   d.ConversationID + ":" + strconv.Itoa(d.Sequence),
		Text: d.Message,
		Conversation: activity.ConversationAccount{
			ID: d.ConversationID,
		},
		From: &activity.ChannelAccount{
			ID:   d.SenderID,
			Role: "user",
		},
		ChannelData: &activity.ChannelAccount{
			ID:   customerID,
			Name: customerID,
			Role: "user",
		},
		ChannelID: ChannelID,
	}
}
