package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var errTokenSubject = errors.New("token subject does not match current_user")

// Codec converts states to and from their persisted representation at the
// transport boundary.
//
// In signed mode an authenticated state is only accepted when it carries a
// valid token issued by Encode for the same user. In trusted mode the client
// parameters are taken at face value, so anyone holding a link can claim any
// session.
type Codec struct {
	secret  []byte
	ttl     time.Duration
	trusted bool
	logger  *logrus.Logger
	now     func() time.Time
}

type CodecConfig struct {
	Secret            string
	TTL               time.Duration
	TrustClientParams bool
	Logger            *logrus.Logger
}

type claims struct {
	jwt.RegisteredClaims
}

func NewCodec(cfg CodecConfig) *Codec {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Codec{
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		trusted: cfg.TrustClientParams,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Decode restores the state carried by p. In signed mode a user name is only
// kept for authenticated states with a valid token.
func (c *Codec) Decode(p Params) State {
	st := Restore(p)
	if c.trusted {
		return st
	}
	if !st.Authenticated {
		st.CurrentUser = ""
		return st
	}

	if err := c.verify(p[KeyToken], st.CurrentUser); err != nil {
		c.logger.WithFields(logrus.Fields{
			"current_user": st.CurrentUser,
			"page":         st.Page,
		}).Warnf("rejecting session parameters: %v", err)
		return LoggedOut().WithPage(st.Page)
	}
	return st
}

// Encode mirrors s and, in signed mode, attaches a token for authenticated states.
func (c *Codec) Encode(s State) (Params, error) {
	p := Mirror(s)
	if c.trusted || !s.Authenticated {
		return p, nil
	}

	token, err := c.sign(s.CurrentUser)
	if err != nil {
		return nil, err
	}
	p[KeyToken] = token
	return p, nil
}

func (c *Codec) sign(username string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (c *Codec) verify(tokenStr, username string) error {
	if tokenStr == "" {
		return errors.New("missing session token")
	}

	var cl claims
	token, err := jwt.ParseWithClaims(tokenStr, &cl, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid session token")
	}
	if cl.Subject != username || username == "" {
		return errTokenSubject
	}
	return nil
}
