package linear

// Option is a function that configures a Lasso regressor.
type Option func(*Lasso)

// WithAlpha sets the L1 regularization strength.
func WithAlpha(alpha float64) Option {
	return func(l *Lasso) {
		l.Alpha = alpha
	}
}

// WithMaxIter sets the coordinate descent iteration limit.
func WithMaxIter(maxIter int) Option {
	return func(l *Lasso) {
		l.MaxIter = maxIter
	}
}

// WithTol sets the convergence tolerance on coefficient updates.
func WithTol(tol float64) Option {
	return func(l *Lasso) {
		l.Tol = tol
	}
}
