package service

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/factory"
	"github.com/sow2grow/ms-go-bestowals/app/provider"
	"github.com/sow2grow/ms-go-bestowals/config"
)

const defaultBatchSize = int32(100)

type bestowalRepository interface {
	Create(ctx context.Context, bestowal *entity.Bestowal) error
	Update(ctx context.Context, bestowal *entity.Bestowal) error
	FindByID(ctx context.Context, kind string, id uint64) (*entity.Bestowal, error)
	FindByOrderRef(ctx context.Context, orderRef string) (*entity.Bestowal, error)
	MarkReleased(ctx context.Context, kind string, id uint64, at time.Time) (bool, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Bestowal, error)
}

type orchardRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Orchard, error)
}

type walletRepository interface {
	FindOrganizationWallet(ctx context.Context, purpose string) (*entity.OrganizationWallet, error)
	FindPrimaryUserWallet(ctx context.Context, userID string) (*entity.UserWallet, error)
}

type walletBalanceRepository interface {
	AddAvailable(ctx context.Context, userID, walletAddress string, deltaCents int64, now time.Time) error
	AddPending(ctx context.Context, userID, walletAddress string, deltaCents int64, now time.Time) error
	ReleasePending(ctx context.Context, userID, walletAddress string, amountCents int64, now time.Time) error
}

type webhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	Find(ctx context.Context, provider int32, webhookID string) (*entity.WebhookEvent, error)
	UpdateStatus(ctx context.Context, id uint64, status string, errMessage *string) error
}

type idempotencyRepository interface {
	Find(ctx context.Context, userID, key string) (*entity.IdempotencyRecord, error)
	Reserve(ctx context.Context, record *entity.IdempotencyRecord) error
	Complete(ctx context.Context, id uint64, responseJSON string) error
	Delete(ctx context.Context, id uint64) error
}

type transferRepository interface {
	Find(ctx context.Context, bestowalID uint64, recipientRole string) (*entity.TransferRecord, error)
	Create(ctx context.Context, record *entity.TransferRecord) error
}

type paymentTransactionRepository interface {
	Create(ctx context.Context, tx *entity.PaymentTransaction) error
}

type notificationRepository interface {
	Create(ctx context.Context, message *entity.NotificationMessage) error
	Update(ctx context.Context, message *entity.NotificationMessage) error
	ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.NotificationMessage, error)
}

// BestowalService orchestrates order creation, webhook reconciliation, fund
// distribution, escrow release, and the notification outbox.
type BestowalService struct {
	bestowalRepo     bestowalRepository
	orchardRepo      orchardRepository
	walletRepo       walletRepository
	balanceRepo      walletBalanceRepository
	webhookRepo      webhookEventRepository
	idempotencyRepo  idempotencyRepository
	transferRepo     transferRepository
	transactionRepo  paymentTransactionRepository
	notificationRepo notificationRepository

	providerReg *provider.Registry

	distributionCfg  config.DistributionConfig
	notificationsCfg config.NotificationsConfig
	jobsCfg          config.JobsConfig

	messagingHTTP *http.Client
	logger        logrus.FieldLogger
}

func NewBestowalService(
	bestowalRepo bestowalRepository,
	orchardRepo orchardRepository,
	walletRepo walletRepository,
	balanceRepo walletBalanceRepository,
	webhookRepo webhookEventRepository,
	idempotencyRepo idempotencyRepository,
	transferRepo transferRepository,
	transactionRepo paymentTransactionRepository,
	notificationRepo notificationRepository,
	providerReg *provider.Registry,
	distributionCfg config.DistributionConfig,
	notificationsCfg config.NotificationsConfig,
	jobsCfg config.JobsConfig,
) *BestowalService {
	timeout := notificationsCfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &BestowalService{
		bestowalRepo:     bestowalRepo,
		orchardRepo:      orchardRepo,
		walletRepo:       walletRepo,
		balanceRepo:      balanceRepo,
		webhookRepo:      webhookRepo,
		idempotencyRepo:  idempotencyRepo,
		transferRepo:     transferRepo,
		transactionRepo:  transactionRepo,
		notificationRepo: notificationRepo,
		providerReg:      providerReg,
		distributionCfg:  distributionCfg,
		notificationsCfg: notificationsCfg,
		jobsCfg:          jobsCfg,
		messagingHTTP:    &http.Client{Timeout: timeout},
		logger:           factory.NewModuleLogger("bestowals-service"),
	}
}

func (s *BestowalService) batchSize() int32 {
	if s.jobsCfg.BatchSize > 0 {
		return s.jobsCfg.BatchSize
	}
	return defaultBatchSize
}
