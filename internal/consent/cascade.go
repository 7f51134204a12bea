package consent

import (
	"context"
	"time"
)

// CascadeNote es la nota generada automáticamente que queda en cada
// DataRequest rechazado por la cascada de revocación.
const CascadeNote = "Automatically rejected due to consent revocation by the subject."

// RevokedEvent es el evento de dominio "ConsentRevoked". La cascada misma
// (bulk-reject de requests no terminales) corre dentro de la transacción del
// revoke en el store; este evento se despacha sincrónicamente DESPUÉS del
// commit para efectos que no necesitan atomicidad (métricas, audit trail).
type RevokedEvent struct {
	SubjectID        int64
	ServiceID        int64
	RejectedRequests int64
	At               time.Time
}

// RevokedHandler consume un RevokedEvent. Los handlers corren en orden de
// suscripción, en el mismo goroutine del revoke.
type RevokedHandler func(ctx context.Context, ev RevokedEvent)
