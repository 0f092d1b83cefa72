package core

import "github.com/lumina-ai/recall-go/pkg/storage"

// fromStorage converts a storage row into the public record type.
func fromStorage(rec *storage.Record) *MemoryRecord {
	if rec == nil {
		return nil
	}
	return &MemoryRecord{
		ID:                   rec.ID,
		UserID:               rec.UserID,
		MemoryType:           MemoryType(rec.MemoryType),
		Category:             rec.Category,
		Fact:                 rec.Fact,
		SubjectName:          rec.SubjectName,
		Relationship:         rec.Relationship,
		ImportanceScore:      rec.ImportanceScore,
		ConfidenceScore:      rec.ConfidenceScore,
		Embedding:            rec.Embedding,
		EmbeddingModel:       rec.EmbeddingModel,
		Version:              rec.Version,
		IsActive:             rec.IsActive,
		DuplicateOf:          rec.DuplicateOf,
		SourceConversationID: rec.SourceConversationID,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

func fromStorageList(recs []*storage.Record) []*MemoryRecord {
	out := make([]*MemoryRecord, len(recs))
	for i, rec := range recs {
		out[i] = fromStorage(rec)
	}
	return out
}
