package chat

import (
	"chatrelay/pkg/llm"
	"chatrelay/pkg/models"
)

// ExportHistory re-expresses a stored conversation in the model service's
// role vocabulary: assistant becomes model, user maps to itself. Order is
// preserved; content is relayed untouched.
func ExportHistory(chats []models.ChatMessage) []llm.Turn {
	out := make([]llm.Turn, 0, len(chats))
	for _, m := range chats {
		out = append(out, llm.Turn{Role: ExportRole(m.Role), Text: m.Content})
	}
	return out
}

// ExportRole translates a stored role to the model vocabulary.
func ExportRole(r models.Role) string {
	if r == models.RoleAssistant {
		return llm.RoleModel
	}
	return llm.RoleUser
}

// ImportRole translates a model-vocabulary role back to the stored one.
// Inverse of ExportRole: model becomes assistant, user is a fixed point.
func ImportRole(r string) models.Role {
	if r == llm.RoleModel {
		return models.RoleAssistant
	}
	return models.RoleUser
}
