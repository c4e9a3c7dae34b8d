package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	repo "github.com/oksasatya/go-identity-service/internal/domain/repository"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/mailer"
	"github.com/oksasatya/go-identity-service/pkg/mailer/templates"
)

type IssueOutcome int

const (
	IssueOutcomeIssued IssueOutcome = iota + 1
	IssueOutcomeAlreadyVerified
)

type IssueResult struct {
	Email   string
	Outcome IssueOutcome
}

// VerificationService issues and redeems email verification codes.
type VerificationService struct {
	Users        repo.UserRepository
	Notifier     Notifier
	Cache        ConfirmedCache // optional
	Brand        templates.Brand
	Logger       *logrus.Logger
	StoreTimeout time.Duration
	MailTimeout  time.Duration
	GenCode      func() (string, error)
}

func NewVerificationService(users repo.UserRepository, notifier Notifier, cache ConfirmedCache, brand templates.Brand, logger *logrus.Logger, storeTimeout, mailTimeout time.Duration) *VerificationService {
	return &VerificationService{
		Users:        users,
		Notifier:     notifier,
		Cache:        cache,
		Brand:        brand,
		Logger:       logger,
		StoreTimeout: storeTimeout,
		MailTimeout:  mailTimeout,
		GenCode:      helpers.GenVerificationCode,
	}
}

// IssueCode stores a fresh code on the user and mails it. The code is
// persisted before delivery; a delivery failure is only logged.
func (s *VerificationService) IssueCode(ctx context.Context, email string) (IssueResult, error) {
	const op = "verification.issue"

	u, err := s.find(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return IssueResult{}, newError(KindUserNotFound, op, nil)
		}
		return IssueResult{}, storeError(op, err)
	}
	if u.EmailConfirmed {
		return IssueResult{Email: u.Email, Outcome: IssueOutcomeAlreadyVerified}, nil
	}

	code, err := s.GenCode()
	if err != nil {
		return IssueResult{}, newError(KindFatal, op, err)
	}
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	err = s.Users.UpdateByID(sctx, u.ID, entity.UserUpdate{VerificationCode: &code})
	cancel()
	if err != nil {
		return IssueResult{}, storeError(op, err)
	}

	s.deliver(ctx, u, code)
	return IssueResult{Email: u.Email, Outcome: IssueOutcomeIssued}, nil
}

func (s *VerificationService) deliver(ctx context.Context, u *entity.User, code string) {
	logger := s.log().WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email})
	if s.Notifier == nil {
		logger.Warn("no notifier configured; verification code not sent")
		return
	}
	data := templates.NewVerifyCodeData(s.Brand, u.FirstName, u.Email, code, templates.WithLocale(u.Locale))
	subject, text, html, err := templates.Render(templates.VerifyCode, data)
	if err != nil {
		logger.WithError(err).Error("render verification email failed")
		return
	}
	mctx, cancel := withTimeout(ctx, s.MailTimeout)
	defer cancel()
	if err := s.Notifier.Send(mctx, mailer.Message{To: u.Email, Subject: subject, Text: text, HTML: html}); err != nil {
		logger.WithError(err).Warn("send verification email failed")
		return
	}
	logger.Info("verification email sent")
}

// RedeemCode confirms the email when code equals the outstanding code.
// A mismatch writes nothing.
func (s *VerificationService) RedeemCode(ctx context.Context, email, code string) (*entity.User, error) {
	const op = "verification.redeem"

	u, err := s.find(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindUserNotFound, op, nil)
		}
		return nil, storeError(op, err)
	}
	if u.VerificationCode == "" || code != u.VerificationCode {
		return nil, newError(KindCodeMismatch, op, nil)
	}

	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	err = s.Users.ConfirmEmail(sctx, u.ID)
	cancel()
	if err != nil {
		return nil, storeError(op, err)
	}
	u.EmailConfirmed = true
	u.VerificationCode = ""

	if s.Cache != nil {
		if err := s.Cache.MarkConfirmed(ctx, u.Email); err != nil {
			s.log().WithError(err).WithField("email", u.Email).Warn("cache confirmed email failed")
		}
	}
	s.log().WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("email confirmed")
	return u, nil
}

func (s *VerificationService) find(ctx context.Context, email string) (*entity.User, error) {
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return s.Users.FindByEmail(sctx, email)
}

func (s *VerificationService) log() *logrus.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}
