// pkg/backend/eula.go
package backend

import "strings"

// AcceptEula records a license agreement as accepted
func (b *Backend) AcceptEula(eulaID string) {
	if eulaID == "" {
		b.logger.Warn().Msg("cannot accept empty eula id")
		return
	}

	b.eulaMu.Lock()
	defer b.eulaMu.Unlock()
	if _, ok := b.eulas[eulaID]; ok {
		b.logger.Debug().Str("eula", eulaID).Msg("already added to accepted list")
		return
	}
	b.eulas[eulaID] = struct{}{}
}

// IsEulaValid reports whether a license agreement was accepted
func (b *Backend) IsEulaValid(eulaID string) bool {
	if eulaID == "" {
		return false
	}
	b.eulaMu.RLock()
	defer b.eulaMu.RUnlock()
	_, ok := b.eulas[eulaID]
	return ok
}

// AcceptedEulaString joins the accepted ids with ";" in no particular order.
// ok is false when nothing has been accepted.
func (b *Backend) AcceptedEulaString() (s string, ok bool) {
	b.eulaMu.RLock()
	defer b.eulaMu.RUnlock()

	if len(b.eulas) == 0 {
		return "", false
	}

	ids := make([]string, 0, len(b.eulas))
	for id := range b.eulas {
		ids = append(ids, id)
	}
	return strings.Join(ids, ";"), true
}
