/*
包 handlers 实现用户数据查询服务的 HTTP 路由与处理函数。

路由表固定为四个端点（/、/config、/query、/stats），处理函数通过
UserDirectory 接口访问存储，通过 config.Store 读取当前配置。所有
查询失败一律降级为空结果或 0 计数，处理函数本身从不向上抛错。
*/
package handlers
