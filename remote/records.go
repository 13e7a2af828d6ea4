package remote

import "context"

func (a *API) ListEvents(ctx context.Context, code string) ([]map[string]any, error) {
	reply, err := a.get(ctx, ResourceEvents, ActionList, map[string]string{"churchCode": code})
	if err != nil {
		return nil, err
	}
	return reply.List("events", "items"), nil
}

func (a *API) UpsertEvent(ctx context.Context, code string, record map[string]any) error {
	_, err := a.post(ctx, ResourceEvents, ActionUpsert, scoped(code, record))
	return err
}

func (a *API) DeleteEvent(ctx context.Context, code, id string) error {
	_, err := a.post(ctx, ResourceEvents, ActionDelete, map[string]any{"churchCode": code, "id": id, "eventId": id})
	return err
}

func (a *API) ListMembers(ctx context.Context, code string) ([]map[string]any, error) {
	reply, err := a.get(ctx, ResourceMembers, ActionList, map[string]string{"churchCode": code})
	if err != nil {
		return nil, err
	}
	return reply.List("members", "items"), nil
}

func (a *API) CreateMember(ctx context.Context, code string, record map[string]any) error {
	_, err := a.post(ctx, ResourceMembers, ActionCreate, scoped(code, record))
	return err
}

func (a *API) UpdateMember(ctx context.Context, code string, record map[string]any) error {
	_, err := a.post(ctx, ResourceMembers, ActionUpdate, scoped(code, record))
	return err
}

func (a *API) DeleteMember(ctx context.Context, code, id string) error {
	_, err := a.post(ctx, ResourceMembers, ActionDelete, map[string]any{"churchCode": code, "id": id, "memberId": id})
	return err
}
