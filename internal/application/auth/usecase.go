package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
	"github.com/jhoicas/stock-transfer-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Rotation: cada refresh consume el token presentado y emite uno nuevo con la misma expiración.
	Rotation bool
}

// TokenPair tokens emitidos. RefreshToken vacío significa que la cookie actual sigue vigente.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// hash bcrypt usado cuando el email no existe, para que el tiempo de respuesta no lo delate.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("stock-transfer-api"), bcrypt.DefaultCost)

// AuthUseCase casos de uso de autenticación: login, refresh, logout y alta de usuarios.
type AuthUseCase struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	audit     AuditRecorder
	jwtCfg    JWTConfig
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth. audit puede ser nil.
func NewAuthUseCase(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	audit AuditRecorder,
	jwtCfg JWTConfig,
	log zerolog.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		audit:     audit,
		jwtCfg:    jwtCfg,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// CreateUser crea un usuario: hashea password con bcrypt y persiste. Devuelve ErrDuplicate si el email ya existe.
func (uc *AuthUseCase) CreateUser(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	in.Email = normalizeEmail(in.Email)
	if err := uc.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}
	existing, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	user := &entity.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Status:       entity.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Login verifica email/password y emite access token + refresh token (persistido como hash).
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest, origin entity.RequestOrigin) (*TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := uc.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	user, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
		return nil, domain.NewAuthError(domain.AuthInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.NewAuthError(domain.AuthInvalidCredentials)
	}
	if !user.Active() {
		return nil, domain.NewAuthError(domain.AuthInactiveUser)
	}

	if n, err := uc.tokenRepo.DeleteExpiredForUser(ctx, user.ID); err != nil {
		uc.log.Warn().Err(err).Int64("user_id", user.ID).Msg("no se pudieron purgar refresh tokens expirados")
	} else if n > 0 {
		uc.log.Debug().Int64("user_id", user.ID).Int64("purged", n).Msg("refresh tokens expirados purgados")
	}

	pair, err := uc.issueAccess(user)
	if err != nil {
		return nil, err
	}
	if err := uc.issueRefresh(ctx, user.ID, uc.now().Add(uc.jwtCfg.RefreshTTL), pair); err != nil {
		return nil, err
	}

	uc.recordAudit(entity.AuditActionLogin, user.ID, origin)
	return pair, nil
}

// Refresh valida el refresh token presentado contra su registro y emite un access token nuevo
// con el rol vigente del usuario. Con rotación, el registro se reemplaza en una sola sentencia por
// un refresh nuevo que conserva la expiración original; si algo falla antes, el token presentado sigue vigente.
func (uc *AuthUseCase) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, domain.NewAuthError(domain.AuthMissingToken)
	}
	claims, err := jwt.ParseRefresh(uc.jwtCfg.RefreshSecret, presented)
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthInvalidRefresh)
	}

	user, err := uc.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil {
		return nil, domain.NewAuthError(domain.AuthInvalidRefresh)
	}
	if !user.Active() {
		return nil, domain.NewAuthError(domain.AuthInactiveUser)
	}

	pair, err := uc.issueAccess(user)
	if err != nil {
		return nil, err
	}

	hash := HashToken(presented)
	if !uc.jwtCfg.Rotation {
		record, err := uc.tokenRepo.Find(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("buscar refresh token: %w", err)
		}
		if !uc.validRecord(record, user.ID) {
			return nil, domain.NewAuthError(domain.AuthInvalidRefresh)
		}
		return pair, nil
	}

	next, err := jwt.GenerateRefresh(uc.jwtCfg.RefreshSecret, user.ID, uc.jwtCfg.Issuer, claims.ExpiresAt.Time)
	if err != nil {
		return nil, fmt.Errorf("firmar refresh token: %w", err)
	}
	record, err := uc.tokenRepo.Rotate(ctx, hash, &entity.RefreshToken{
		TokenHash: HashToken(next),
		UserID:    user.ID,
		CreatedAt: uc.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("rotar refresh token: %w", err)
	}
	if !uc.validRecord(record, user.ID) {
		return nil, domain.NewAuthError(domain.AuthInvalidRefresh)
	}
	pair.RefreshToken = next
	pair.RefreshExpiresAt = record.ExpiresAt
	return pair, nil
}

func (uc *AuthUseCase) validRecord(record *entity.RefreshToken, userID int64) bool {
	return record != nil && !record.Expired(uc.now()) && record.UserID == userID
}

// Logout invalida el refresh token presentado. Idempotente: un token vacío o desconocido no es error.
func (uc *AuthUseCase) Logout(ctx context.Context, presented string, origin entity.RequestOrigin) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}
	if err := uc.tokenRepo.Delete(ctx, HashToken(presented)); err != nil {
		return fmt.Errorf("borrar refresh token: %w", err)
	}
	if claims, err := jwt.ParseRefresh(uc.jwtCfg.RefreshSecret, presented); err == nil {
		uc.recordAudit(entity.AuditActionLogout, claims.UserID, origin)
	}
	return nil
}

func (uc *AuthUseCase) issueAccess(user *entity.User) (*TokenPair, error) {
	token, exp, err := jwt.GenerateAccess(uc.jwtCfg.AccessSecret, user.ID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("firmar access token: %w", err)
	}
	return &TokenPair{AccessToken: token, AccessExpiresAt: exp}, nil
}

func (uc *AuthUseCase) issueRefresh(ctx context.Context, userID int64, expiresAt time.Time, pair *TokenPair) error {
	token, err := jwt.GenerateRefresh(uc.jwtCfg.RefreshSecret, userID, uc.jwtCfg.Issuer, expiresAt)
	if err != nil {
		return fmt.Errorf("firmar refresh token: %w", err)
	}
	record := &entity.RefreshToken{
		TokenHash: HashToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.tokenRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("guardar refresh token: %w", err)
	}
	pair.RefreshToken = token
	pair.RefreshExpiresAt = expiresAt
	return nil
}

func (uc *AuthUseCase) recordAudit(action string, userID int64, origin entity.RequestOrigin) {
	if uc.audit == nil {
		return
	}
	id := userID
	uc.audit.Record(&entity.AuditEntry{
		UserID:     &id,
		Action:     action,
		EntityType: entity.AuditEntityUser,
		EntityID:   &id,
		Origin:     origin,
	})
}

// HashToken SHA-256 en hex del token; es lo único que se persiste del refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "es obligatorio")
	case "email":
		return domain.NewValidationError(field, "no es un email válido")
	case "oneof":
		return domain.NewValidationError(field, "debe ser uno de: "+fe.Param())
	case "min", "max":
		return domain.NewValidationError(field, "longitud fuera de rango")
	}
	return domain.NewValidationError(field, "valor inválido")
}
