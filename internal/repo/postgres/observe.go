package postgres

// DBObserver times logical DB operations; observability.Prom implements it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

func observerOrNoop(o DBObserver) DBObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}
