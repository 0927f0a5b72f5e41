package provider

import "context"

// Adapt presents inner, which speaks [BI, BO], as a provider of [I, O]
// called name. inner is not called when in fails. Close is forwarded to
// inner when it holds resources.
func Adapt[I, O, BI, BO any](
	inner RequestResponse[BI, BO],
	name string,
	in func(context.Context, I) (BI, error),
	out func(BO) (O, error),
) RequestResponse[I, O] {
	return &adapter[I, O, BI, BO]{inner: inner, name: name, in: in, out: out}
}

type adapter[I, O, BI, BO any] struct {
	inner RequestResponse[BI, BO]
	name  string
	in    func(context.Context, I) (BI, error)
	out   func(BO) (O, error)
}

func (a *adapter[I, O, BI, BO]) Name() string { return a.name }

func (a *adapter[I, O, BI, BO]) IsAvailable(ctx context.Context) bool {
	return a.inner.IsAvailable(ctx)
}

func (a *adapter[I, O, BI, BO]) Close(ctx context.Context) error {
	return CloseIfCloseable(ctx, a.inner)
}

func (a *adapter[I, O, BI, BO]) Execute(ctx context.Context, input I) (result O, err error) {
	req, err := a.in(ctx, input)
	if err != nil {
		return result, err
	}
	resp, err := a.inner.Execute(ctx, req)
	if err != nil {
		return result, err
	}
	return a.out(resp)
}
