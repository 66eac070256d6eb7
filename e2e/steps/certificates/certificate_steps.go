package certificates

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"warranty/pkg/domain"
)

// TestContext is the part of the scenario context the certificate steps need.
type TestContext interface {
	POST(path string, body any, bearer string) error
	GET(path string) error
	StatusCode() int
	ResponseField(field string) (any, error)
	DecodeResponse(v any) error
	Address(name string) domain.Address
	TokenFor(name string) (string, error)
}

// RegisterSteps registers certificate lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &certificateSteps{tc: tc}

	ctx.Step(`^"([^"]*)" issues a certificate to "([^"]*)" for a "([^"]*)" with a (\d+) month warranty$`, steps.issue)
	ctx.Step(`^"([^"]*)" issues a certificate with:$`, steps.issueWithTable)
	ctx.Step(`^an anonymous caller issues a certificate to "([^"]*)"$`, steps.issueAnonymously)
	ctx.Step(`^"([^"]*)" transfers certificate (\d+) from "([^"]*)" to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^I look up certificate (\d+)$`, steps.lookUp)

	ctx.Step(`^the issued certificate id should be (\d+)$`, steps.issuedIDShouldBe)
	ctx.Step(`^the token counter should be (\d+)$`, steps.tokenCounterShouldBe)
	ctx.Step(`^the owner of certificate (\d+) should be "([^"]*)"$`, steps.ownerShouldBe)
	ctx.Step(`^the buyer of certificate (\d+) should be "([^"]*)"$`, steps.buyerShouldBe)
	ctx.Step(`^certificate (\d+) should be (valid|invalid)$`, steps.validityShouldBe)
	ctx.Step(`^"([^"]*)" should hold (\d+) certificates?$`, steps.balanceShouldBe)
	ctx.Step(`^listing certificates for "([^"]*)" should return ids "([^"]*)"$`, steps.listShouldReturn)
}

type certificateSteps struct {
	tc TestContext
}

func (s *certificateSteps) issue(_ context.Context, seller, buyer, product string, months int) error {
	return s.create(seller, map[string]any{
		"brand_name":      "Acme",
		"product":         product,
		"category":        "Appliances",
		"price":           100,
		"warranty_period": months,
		"buyer_address":   string(s.tc.Address(buyer)),
	})
}

// issueWithTable takes a two-column field/value table. A buyer_address value
// naming a party is resolved to that party's address.
func (s *certificateSteps) issueWithTable(_ context.Context, seller string, table *godog.Table) error {
	body := map[string]any{}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected field/value rows, got %d cells", len(row.Cells))
		}
		field, value := row.Cells[0].Value, row.Cells[1].Value
		switch field {
		case "price", "warranty_period":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", field, err)
			}
			body[field] = n
		case "buyer_address":
			if value != "" && !strings.HasPrefix(value, "0x") {
				value = string(s.tc.Address(value))
			}
			body[field] = value
		default:
			body[field] = value
		}
	}
	return s.create(seller, body)
}

func (s *certificateSteps) issueAnonymously(_ context.Context, buyer string) error {
	return s.tc.POST("/certificates", map[string]any{
		"brand_name": "Acme", "product": "Kettle", "category": "Kitchen",
		"price": 1, "warranty_period": 1, "buyer_address": string(s.tc.Address(buyer)),
	}, "")
}

func (s *certificateSteps) create(seller string, body map[string]any) error {
	bearer, err := s.tc.TokenFor(seller)
	if err != nil {
		return err
	}
	return s.tc.POST("/certificates", body, bearer)
}

func (s *certificateSteps) transfer(_ context.Context, caller string, id int, from, to string) error {
	bearer, err := s.tc.TokenFor(caller)
	if err != nil {
		return err
	}
	return s.tc.POST(fmt.Sprintf("/certificates/%d/transfer", id), map[string]string{
		"from": string(s.tc.Address(from)),
		"to":   string(s.tc.Address(to)),
	}, bearer)
}

func (s *certificateSteps) lookUp(_ context.Context, id int) error {
	return s.tc.GET(fmt.Sprintf("/certificates/%d", id))
}

func (s *certificateSteps) issuedIDShouldBe(_ context.Context, want int) error {
	if status := s.tc.StatusCode(); status != 201 {
		return fmt.Errorf("expected 201 Created, got %d", status)
	}
	return s.fieldEquals("id", float64(want))
}

func (s *certificateSteps) tokenCounterShouldBe(_ context.Context, want int) error {
	if err := s.tc.GET("/certificates/count"); err != nil {
		return err
	}
	return s.fieldEquals("token_counter", float64(want))
}

func (s *certificateSteps) ownerShouldBe(_ context.Context, id int, name string) error {
	if err := s.tc.GET(fmt.Sprintf("/certificates/%d/owner", id)); err != nil {
		return err
	}
	return s.fieldEquals("owner", string(s.tc.Address(name)))
}

func (s *certificateSteps) buyerShouldBe(_ context.Context, id int, name string) error {
	if err := s.tc.GET(fmt.Sprintf("/certificates/%d", id)); err != nil {
		return err
	}
	return s.fieldEquals("buyer", string(s.tc.Address(name)))
}

func (s *certificateSteps) validityShouldBe(_ context.Context, id int, want string) error {
	if err := s.tc.GET(fmt.Sprintf("/certificates/%d/validity", id)); err != nil {
		return err
	}
	return s.fieldEquals("valid", want == "valid")
}

func (s *certificateSteps) balanceShouldBe(_ context.Context, name string, want int) error {
	if err := s.tc.GET("/holders/" + string(s.tc.Address(name)) + "/balance"); err != nil {
		return err
	}
	return s.fieldEquals("balance", float64(want))
}

func (s *certificateSteps) listShouldReturn(_ context.Context, name, ids string) error {
	if err := s.tc.GET("/certificates?party=" + string(s.tc.Address(name))); err != nil {
		return err
	}
	var resp struct {
		Certificates []struct {
			ID uint64 `json:"id"`
		} `json:"certificates"`
	}
	if err := s.tc.DecodeResponse(&resp); err != nil {
		return err
	}
	got := make([]string, 0, len(resp.Certificates))
	for _, c := range resp.Certificates {
		got = append(got, strconv.FormatUint(c.ID, 10))
	}
	if strings.Join(got, ",") != ids {
		return fmt.Errorf("expected ids %q, got %q", ids, strings.Join(got, ","))
	}
	return nil
}

func (s *certificateSteps) fieldEquals(field string, want any) error {
	got, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %s=%v, got %v (status %d)", field, want, got, s.tc.StatusCode())
	}
	return nil
}
