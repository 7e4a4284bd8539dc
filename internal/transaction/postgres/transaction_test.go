package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/brpay/pix-gateway/internal"
	transactionDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/transaction"
	transactionpkg "github.com/brpay/pix-gateway/internal/transaction"
)

func TestTransactionRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Transaction Repository Suite")
}

var _ = ginkgo.Describe("TransactionRepository", func() {
	var (
		db   *gorm.DB
		repo transactionpkg.RepositoryAPI
		now  time.Time
	)

	newRecord := func(id, status string) *transactionDatamodel.Transaction {
		txid := "E" + id
		return &transactionDatamodel.Transaction{
			ID:           id,
			UserID:       42,
			Amount:       decimal.RequireFromString("150.00"),
			Status:       status,
			AcquirerTxID: &txid,
			ExpiresAt:    now.Add(time.Hour),
		}
	}

	ginkgo.BeforeEach(func() {
		now = time.Now().UTC()
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&transactionDatamodel.Transaction{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewTransactionRepository(db)
	})

	ginkgo.Describe("UpdateStatusConditional", func() {
		ginkgo.It("updates when the expected status holds", func() {
			gomega.Expect(repo.Create(newRecord("tx-1", transactionpkg.StatusPending))).To(gomega.Succeed())

			settledAt := now
			affected, err := repo.UpdateStatusConditional("tx-1", transactionpkg.StatusPaid, transactionpkg.StatusPending, &settledAt, nil)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.Equal(int64(1)))

			stored, err := repo.GetByID("tx-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(transactionpkg.StatusPaid))
			gomega.Expect(stored.SettledAt).ToNot(gomega.BeNil())
		})

		ginkgo.It("touches no rows when the status already moved", func() {
			gomega.Expect(repo.Create(newRecord("tx-1", transactionpkg.StatusPaid))).To(gomega.Succeed())

			affected, err := repo.UpdateStatusConditional("tx-1", transactionpkg.StatusExpired, transactionpkg.StatusPending, nil, nil)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.BeZero())

			stored, err := repo.GetByID("tx-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(transactionpkg.StatusPaid))
		})

		ginkgo.It("touches no rows for an unknown id", func() {
			affected, err := repo.UpdateStatusConditional("missing", transactionpkg.StatusPaid, transactionpkg.StatusPending, nil, nil)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.BeZero())
		})

		ginkgo.It("records the failure reason on failed transitions", func() {
			gomega.Expect(repo.Create(newRecord("tx-1", transactionpkg.StatusPending))).To(gomega.Succeed())

			reason := "payer rejected charge"
			affected, err := repo.UpdateStatusConditional("tx-1", transactionpkg.StatusFailed, transactionpkg.StatusPending, nil, &reason)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.Equal(int64(1)))

			stored, _ := repo.GetByID("tx-1")
			gomega.Expect(*stored.FailureReason).To(gomega.Equal(reason))
		})
	})

	ginkgo.Describe("GetByAcquirerTxID", func() {
		ginkgo.It("resolves the acquirer txid", func() {
			gomega.Expect(repo.Create(newRecord("tx-1", transactionpkg.StatusPending))).To(gomega.Succeed())

			stored, err := repo.GetByAcquirerTxID("Etx-1")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.ID).To(gomega.Equal("tx-1"))
		})

		ginkgo.It("maps an unknown txid to the not-found sentinel", func() {
			_, err := repo.GetByAcquirerTxID("E999")
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrTransactionNotFound))
		})
	})

	ginkgo.Describe("GetByID", func() {
		ginkgo.It("maps an unknown id to the not-found sentinel", func() {
			_, err := repo.GetByID("missing")
			gomega.Expect(err).To(gomega.MatchError(apperrors.ErrTransactionNotFound))
		})
	})
})
