package workflow

import (
	"context"
	"strings"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/model"
)

// AddFollowUp appends a kesimpulan note through the backend. The local list
// is replaced by the list the server returns.
func (e *Engine) AddFollowUp(ctx context.Context, text string) ([]model.Kesimpulan, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("follow-up text is empty", "kesimpulan")
	}
	return e.followUp(ctx, func(actionID string) ([]model.Kesimpulan, error) {
		return e.backend.AddKesimpulan(ctx, actionID, text)
	})
}

// EditFollowUp rewrites the note at index.
func (e *Engine) EditFollowUp(ctx context.Context, index int, text string) ([]model.Kesimpulan, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("follow-up text is empty", "kesimpulan")
	}
	if index < 0 {
		return nil, apperrors.NewValidationError("follow-up index out of range", "kesimpulan")
	}
	return e.followUp(ctx, func(actionID string) ([]model.Kesimpulan, error) {
		return e.backend.EditKesimpulan(ctx, actionID, index, text)
	})
}

// RemoveFollowUp deletes the note at index.
func (e *Engine) RemoveFollowUp(ctx context.Context, index int) ([]model.Kesimpulan, error) {
	if index < 0 {
		return nil, apperrors.NewValidationError("follow-up index out of range", "kesimpulan")
	}
	return e.followUp(ctx, func(actionID string) ([]model.Kesimpulan, error) {
		return e.backend.DeleteKesimpulan(ctx, actionID, index)
	})
}

func (e *Engine) followUp(ctx context.Context, call func(actionID string) ([]model.Kesimpulan, error)) ([]model.Kesimpulan, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	e.mu.Lock()
	actionID := e.draft.ID
	e.mu.Unlock()

	if actionID == "" {
		e.notifier.Error("Gagal menyimpan kesimpulan: tindakan belum tersimpan")
		return nil, apperrors.NewValidationError("action id is missing", "_id")
	}

	list, err := call(actionID)
	if err != nil {
		e.notifier.Error("Gagal menyimpan kesimpulan: " + err.Error())
		return nil, err
	}
	if list == nil {
		list = []model.Kesimpulan{}
	}

	e.mu.Lock()
	e.draft.Kesimpulan = append([]model.Kesimpulan(nil), list...)
	e.mu.Unlock()

	e.notifier.Success("Kesimpulan diperbarui")
	return list, nil
}
