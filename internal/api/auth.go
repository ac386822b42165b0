package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/access"
	"github.com/hackgods/clinic-scheduling/internal/audit"
)

const (
	devRoleHeader = "X-Dev-Role"
	devUserHeader = "X-Dev-User"
)

// Authenticate resolves the caller from the bearer token. With a nil verifier
// (dev mode) the role comes from X-Dev-Role and defaults to SECRETARIA.
func Authenticate(v *access.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				p   access.Principal
				err error
			)

			if v == nil {
				p = devPrincipal(r)
			} else {
				p, err = v.Parse(bearerToken(r))
				if err != nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
					return
				}
			}

			ctx := access.WithPrincipal(r.Context(), p)
			ctx = audit.WithActor(ctx, p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects callers whose role lacks c.
func RequireCapability(c access.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := access.PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", access.ErrMissingToken.Error())
				return
			}
			if !p.Can(c) {
				writeError(w, http.StatusForbidden, "forbidden", "role "+string(p.Role)+" lacks "+string(c))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func devPrincipal(r *http.Request) access.Principal {
	role := access.Role(strings.ToUpper(r.Header.Get(devRoleHeader)))
	if !role.Valid() {
		role = access.RoleReceptionist
	}
	id, err := uuid.Parse(r.Header.Get(devUserHeader))
	if err != nil {
		id = uuid.Nil
	}
	return access.Principal{UserID: id, Role: role}
}

// RequireAssignment limits practitioners to appointments on their own agenda. Other
// roles pass through to the capability checks.
func RequireAssignment(svc AppointmentService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := access.PrincipalFrom(r.Context())
			if !ok || p.Role != access.RolePractitioner {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := appointmentID(w, r)
			if !ok {
				return
			}
			appt, err := svc.Get(r.Context(), id)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			if appt.PractitionerID != p.UserID {
				writeError(w, http.StatusForbidden, "not_assigned", "appointment belongs to another practitioner")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
