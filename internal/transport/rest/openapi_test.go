package rest_test

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("OpenAPI contract", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a valid OpenAPI 3 document", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every registered route", func() {
		for _, path := range []string{
			"/health",
			"/ping",
			"/auth/login",
			"/auth/refresh",
			"/auth/logout",
			"/users/me",
			"/users/me/pix-key",
			"/transactions",
			"/transactions/{id}",
			"/wallet/balance",
			"/wallet/transactions",
			"/pix/callback",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("documents the settlement callback responses", func() {
		callback := doc.Paths.Find("/pix/callback")
		Expect(callback).NotTo(BeNil())
		Expect(callback.Post).NotTo(BeNil())

		for _, status := range []string{"200", "400", "401", "404", "422", "502"} {
			Expect(callback.Post.Responses.Value(status)).NotTo(BeNil(), "missing response %s", status)
		}
	})
})
