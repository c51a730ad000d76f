package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the ledger API on v1. Authentication is the caller's
// job; every handler expects the owner identity on the context.
func RegisterRoutes(v1 gin.IRoutes, accounts *AccountHandler, ledger *LedgerHandler, customers *CustomerHandler) {
	v1.GET("/accounts", accounts.ListAccounts)
	v1.POST("/accounts", accounts.CreateAccount)
	v1.GET("/accounts/:accountId", accounts.GetAccount)
	v1.DELETE("/accounts/:accountId", accounts.DeleteAccount)

	v1.GET("/replenishments", ledger.ListReplenishments)
	v1.POST("/replenishments", ledger.Replenish)
	v1.GET("/replenishments/:id", ledger.GetReplenishment)

	v1.GET("/transfers", ledger.ListTransfers)
	v1.POST("/transfers", ledger.Transfer)
	v1.GET("/transfers/:id", ledger.GetTransfer)

	v1.GET("/customer", customers.GetCustomer)
	v1.PUT("/customer", customers.UpsertCustomer)
	v1.DELETE("/customer", customers.DeleteCustomer)
}
