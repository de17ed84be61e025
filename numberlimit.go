package reseller

import (
	"context"

	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/types"
)

// SetNumberLimit sets how many virtual numbers a reseller may hold.
func (e *Engine) SetNumberLimit(ctx context.Context, actor Actor, resellerID id.ResellerID, maxVirtualNumbers int) (*numberlimit.Limit, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	if maxVirtualNumbers < 0 {
		return nil, invalid("max_virtual_numbers", "must not be negative")
	}
	if _, err := e.loadReseller(ctx, resellerID); err != nil {
		return nil, err
	}
	return e.upsertNumberLimit(ctx, resellerID, maxVirtualNumbers)
}

// GetNumberLimit returns the number limit of a reseller.
func (e *Engine) GetNumberLimit(ctx context.Context, resellerID id.ResellerID) (*numberlimit.Limit, error) {
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	l, err := e.store.GetLimit(ctx, resellerID)
	if IsNotFound(err) {
		return nil, ErrNumberLimitNotFound
	}
	if err != nil {
		return nil, persistence("get number limit", err)
	}
	return l, nil
}

func (e *Engine) upsertNumberLimit(ctx context.Context, resellerID id.ResellerID, maxVirtualNumbers int) (*numberlimit.Limit, error) {
	l := &numberlimit.Limit{
		Entity:            types.NewEntity(e.clock()),
		ID:                id.NewNumberLimitID(),
		ResellerID:        resellerID,
		MaxVirtualNumbers: maxVirtualNumbers,
	}
	if err := e.store.UpsertLimit(ctx, l); err != nil {
		return nil, persistence("upsert number limit", err)
	}

	e.logger.Info("number limit set",
		"reseller_id", resellerID.String(),
		"max_virtual_numbers", maxVirtualNumbers,
	)
	e.plugins.EmitNumberLimitChanged(ctx, l)
	return l, nil
}
