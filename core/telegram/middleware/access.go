package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return Gate(func(c tele.Context) bool {
		return opts.AdminID == 0 || (c.Sender() != nil && c.Sender().ID == opts.AdminID)
	}, opts.OnReject)
}

// Gate runs next only when allow reports true; otherwise onReject, if set.
func Gate(allow func(tele.Context) bool, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if allow != nil && !allow(c) {
				if onReject != nil {
					return onReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
