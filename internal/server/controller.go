package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/optimode/emailfinder"
)

// Finder is the part of *emailfinder.Finder the API needs.
type Finder interface {
	Find(ctx context.Context, req emailfinder.Request, opts ...emailfinder.FindOption) (emailfinder.Response, error)
}

type findRequest struct {
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Company           string   `json:"company"`
	Domain            string   `json:"domain"`
	AdditionalDomains []string `json:"additional_domains"`
	Headless          *bool    `json:"headless"`
}

type emailsController struct {
	finder Finder
}

func (c *emailsController) InitRoute(r gin.IRoutes, p string) {
	post(r, p, c.find)
}

func (c *emailsController) find(ctx *gin.Context) error {
	var body findRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return bindError(ctx, err)
	}

	var opts []emailfinder.FindOption
	if body.Domain != "" {
		opts = append(opts, emailfinder.WithDomain(body.Domain))
	}
	if body.Headless != nil {
		opts = append(opts, emailfinder.WithHeadless(*body.Headless))
	}

	resp, err := c.finder.Find(ctx.Request.Context(), emailfinder.Request{
		FirstName:    body.FirstName,
		LastName:     body.LastName,
		Company:      body.Company,
		ExtraDomains: body.AdditionalDomains,
	}, opts...)
	if err != nil {
		return err
	}
	if resp.Results == nil {
		resp.Results = []emailfinder.Result{}
	}
	ctx.JSON(http.StatusOK, resp)
	return nil
}

func post(r gin.IRoutes, p string, f func(ctx *gin.Context) error) {
	r.POST(p, func(ctx *gin.Context) {
		if err := f(ctx); err != nil {
			abort(ctx, err)
		}
	})
}

func abort(ctx *gin.Context, err error) {
	ctx.Abort()
	_ = ctx.Error(err)
}

func bindError(ctx *gin.Context, err error) error {
	ctx.Abort()
	_ = ctx.Error(err).SetType(gin.ErrorTypeBind)
	return nil
}
