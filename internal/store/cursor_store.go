package store

import (
	"context"
	"fmt"
	"strconv"
)

// CursorStore defines the interface for storing and retrieving the listener cursor
type CursorStore interface {
	// GetBlockCursor retrieves the last processed block height for a network, 0 if none
	GetBlockCursor(ctx context.Context, network string) (uint64, error)
	// SetBlockCursor stores the last processed block height for a network
	SetBlockCursor(ctx context.Context, network string, height uint64) error
}

func cursorKey(network string) string {
	return fmt.Sprintf("stacks_cursor:%s", network)
}

// kvCursor implements CursorStore on top of a key-value getter and setter
type kvCursor struct {
	get func(ctx context.Context, key string) (string, error)
	set func(ctx context.Context, key string, value string) error
}

func (c kvCursor) GetBlockCursor(ctx context.Context, network string) (uint64, error) {
	value, err := c.get(ctx, cursorKey(network))
	if err != nil {
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}
	if value == "" {
		return 0, nil
	}

	height, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}
	return height, nil
}

func (c kvCursor) SetBlockCursor(ctx context.Context, network string, height uint64) error {
	if err := c.set(ctx, cursorKey(network), strconv.FormatUint(height, 10)); err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}
	return nil
}
