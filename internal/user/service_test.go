package user_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/brpay/pix-gateway/internal"
	userDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/user"
	userPkg "github.com/brpay/pix-gateway/internal/user"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

type mockUserRepository struct {
	users       map[int64]*userDatamodel.User
	getError    error
	updateError error
	updateCalls int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: map[int64]*userDatamodel.User{
			1: {ID: 1, Email: "ana@lojinha.com.br", Name: "Ana", IsActive: true},
		},
	}
}

func (m *mockUserRepository) GetByID(id int64) (*userDatamodel.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePixKey(id int64, pixKey string) error {
	m.updateCalls++
	if m.updateError != nil {
		return m.updateError
	}
	u, ok := m.users[id]
	if !ok {
		return errors.New("record not found")
	}
	u.PixKey = &pixKey
	return nil
}

var _ = Describe("User Service", func() {
	var (
		repo    *mockUserRepository
		service *userPkg.Service
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		service = userPkg.NewService(repo, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	})

	Describe("GetByID", func() {
		It("returns the user profile", func() {
			u, err := service.GetByID(1)

			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("ana@lojinha.com.br"))
			Expect(u.PixKey).To(BeNil())
		})

		It("maps a missing user to not found", func() {
			_, err := service.GetByID(42)

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeNotFound))
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeUserNotFound))
		})

		It("surfaces store failures as internal errors, not as not found", func() {
			repo.getError = errors.New("connection refused")

			_, err := service.GetByID(1)

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeInternal))
		})
	})

	Describe("UpdatePixKey", func() {
		DescribeTable("accepts every PIX key shape",
			func(key string) {
				u, err := service.UpdatePixKey(1, &userPkg.UpdatePixKeyDTO{PixKey: key})

				Expect(err).NotTo(HaveOccurred())
				Expect(u.PixKey).NotTo(BeNil())
				Expect(*u.PixKey).To(Equal(key))
			},
			Entry("email", "ana@lojinha.com.br"),
			Entry("phone", "+5511998765432"),
			Entry("CPF", "12345678901"),
			Entry("CNPJ", "12345678000195"),
			Entry("EVP", "123e4567-e89b-42d3-a456-426614174000"),
		)

		It("rejects a malformed key without touching the repository", func() {
			_, err := service.UpdatePixKey(1, &userPkg.UpdatePixKeyDTO{PixKey: "not-a-pix-key"})

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidPixKey))
			Expect(repo.updateCalls).To(BeZero())
		})

		It("rejects an empty key", func() {
			_, err := service.UpdatePixKey(1, &userPkg.UpdatePixKeyDTO{PixKey: "   "})

			Expect(err).To(HaveOccurred())
			Expect(repo.updateCalls).To(BeZero())
		})

		It("surfaces repository failures as internal errors", func() {
			repo.updateError = errors.New("connection reset")

			_, err := service.UpdatePixKey(1, &userPkg.UpdatePixKeyDTO{PixKey: "ana@lojinha.com.br"})

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeInternal))
		})
	})
})
