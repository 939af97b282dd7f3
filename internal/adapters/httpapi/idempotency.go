package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// handlerResult is what an idempotent handler produces on success.
type handlerResult struct {
	status int
	body   any
}

// idempotent runs fn at most once per (subject, Idempotency-Key, method, path).
//
// Idempotency handling (v1):
//   - Replay if same actor+key+route+bodyHash
//   - Reject if same actor+key+route with different bodyHash (409)
//
// Requests without the header run normally. Only 2xx responses are stored.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, subject domain.MemberID, canon any, fn func() (handlerResult, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.idem == nil {
		res, err := fn()
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, res.status, res.body)
		return
	}

	ctx := r.Context()
	bodyHash, err := hashBody(canon)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  subject,
		Method:   r.Method,
		Route:    r.URL.Path,
		BodyHash: "",
	}
	if meta, ok, err := s.idem.Get(ctx, metaFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.now(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.idem.Get(ctx, respFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	res, err := fn()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	// The bytes stored for replay are the bytes written now.
	b, err := json.Marshal(res.body)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	_ = s.idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  res.status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	})
	writeRawJSON(w, res.status, b)
}

func hashBody(canon any) (string, error) {
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalUpdateMe normalizes fields with normalization semantics before hashing.
func canonicalUpdateMe(b UpdateMeRequest) UpdateMeRequest {
	canon := b
	if canon.DisplayName.IsSpecified() && !canon.DisplayName.IsNull() {
		if v, err := canon.DisplayName.Get(); err == nil {
			canon.DisplayName.Set(domain.NormalizeHumanName(v))
		}
	}
	return canon
}

func (s *Server) now() time.Time {
	if s.clk == nil {
		return time.Now().UTC()
	}
	return s.clk.Now()
}
