package di

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dtbase/dt-deployer/internal/dao/builddao"
	"github.com/dtbase/dt-deployer/internal/dao/lockdao"
	"github.com/dtbase/dt-deployer/internal/services"
)

// ProvideBuildDAO provides the run record DAO. The table comes from
// configuration when set, otherwise the conventional per-environment name.
func ProvideBuildDAO(env string, client *dynamodb.Client, config *services.Config) *builddao.DAO {
	table := config.BuildTable
	if table == "" {
		table = builddao.TableName(env)
	}
	return builddao.New(client, table)
}

// ProvideLockDAO provides the run lock DAO. The table comes from
// configuration when set, otherwise the conventional per-environment name.
func ProvideLockDAO(env string, client *dynamodb.Client, config *services.Config) *lockdao.DAO {
	table := config.LockTable
	if table == "" {
		table = lockdao.TableName(env)
	}
	return lockdao.New(client, table)
}
